package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(f *fixture) http.Handler {
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.svc)
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateOrder(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	rec := postJSON(t, router, "/orders", CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var order Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	require.NotEmpty(t, order.Number)
	require.Equal(t, StatusDraft, order.Status)
}

func TestHandlerCreateRejectsEmptyLines(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	rec := postJSON(t, router, "/orders", CreateOrderRequest{ClientID: 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "Validation Failed", problem["title"])
}

func TestHandlerConfirmConflict(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	rec := postJSON(t, router, "/orders", CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var order Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))

	confirmPath := fmt.Sprintf("/orders/%d/confirm", order.ID)
	rec = postJSON(t, router, confirmPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, confirmPath, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerShowJoinsClient(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	rec := postJSON(t, router, "/orders", CreateOrderRequest{
		ClientID: 1,
		Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var order Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), nil)
	show := httptest.NewRecorder()
	router.ServeHTTP(show, req)
	require.Equal(t, http.StatusOK, show.Code)

	var detail map[string]any
	require.NoError(t, json.Unmarshal(show.Body.Bytes(), &detail))
	require.Contains(t, detail, "client")
}

func TestHandlerShowUnknownOrder(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/orders/404", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerListPagination(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	for i := 0; i < 3; i++ {
		rec := postJSON(t, router, "/orders", CreateOrderRequest{
			ClientID: 1,
			Lines:    []OrderLineInput{{ArticleID: 10, Quantity: 1}},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/orders?page=1&limit=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items      []Order `json:"items"`
		Pagination struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
			Total int `json:"total"`
			Pages int `json:"pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Pagination.Total)
	require.Equal(t, 2, resp.Pagination.Pages)
	require.Equal(t, 2, resp.Pagination.Limit)
}
