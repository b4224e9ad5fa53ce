package orders

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeTotalsRoundTrip(t *testing.T) {
	lines := []OrderLine{
		{QtyOrdered: 2, UnitPrice: 10},
		{QtyOrdered: 3, UnitPrice: 10},
	}

	totals := ComputeTotals(lines, 20)
	require.Equal(t, 50.0, totals.PreTax)
	require.Equal(t, 10.0, totals.Tax)
	require.Equal(t, 60.0, totals.Total)
}

func TestComputeTotalsEmpty(t *testing.T) {
	totals := ComputeTotals(nil, 20)
	require.Equal(t, 0.0, totals.PreTax)
	require.Equal(t, 0.0, totals.Tax)
	require.Equal(t, 0.0, totals.Total)
}

func TestComputeTotalsRounding(t *testing.T) {
	lines := []OrderLine{
		{QtyOrdered: 3, UnitPrice: 0.333},
	}

	totals := ComputeTotals(lines, 20)
	require.Equal(t, 1.0, totals.PreTax)
	require.Equal(t, 0.2, totals.Tax)
	require.Equal(t, 1.2, totals.Total)
}

func TestComputeTotalsZeroRate(t *testing.T) {
	lines := []OrderLine{{QtyOrdered: 4, UnitPrice: 25}}

	totals := ComputeTotals(lines, 0)
	require.Equal(t, 100.0, totals.PreTax)
	require.Equal(t, 0.0, totals.Tax)
	require.Equal(t, 100.0, totals.Total)
}

func TestComputeTotalsPure(t *testing.T) {
	lines := []OrderLine{
		{QtyOrdered: 7, UnitPrice: 3.14},
		{QtyOrdered: 1, UnitPrice: 99.99},
	}

	first := ComputeTotals(lines, 20)
	second := ComputeTotals(lines, 20)
	require.Equal(t, first, second)
}
