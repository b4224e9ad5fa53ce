package articles

import "time"

// ProductFamily is the closed set of catalog categories.
type ProductFamily string

const (
	FamilyBulk          ProductFamily = "APS BulkNiv2"
	FamilyFinished      ProductFamily = "APS Finished Product"
	FamilyLaserBox      ProductFamily = "APS Laser Box"
	FamilyPackagingLbl  ProductFamily = "APS Packaging Label"
	FamilyCopierBox     ProductFamily = "APS Copier Box"
	FamilyCartridgeLbl  ProductFamily = "APS Cartridge Label"
	FamilyAirbagInsert  ProductFamily = "APS Airbag/Insert/Inlay"
	FamilyPackagingMisc ProductFamily = "APS Packaging Other"
)

// Unit is the unit of measure an article is sold in.
type Unit string

const (
	UnitPiece    Unit = "PCE"
	UnitKilogram Unit = "KG"
	UnitLiter    Unit = "L"
	UnitMeter    Unit = "M"
)

var knownFamilies = map[ProductFamily]bool{
	FamilyBulk:          true,
	FamilyFinished:      true,
	FamilyLaserBox:      true,
	FamilyPackagingLbl:  true,
	FamilyCopierBox:     true,
	FamilyCartridgeLbl:  true,
	FamilyAirbagInsert:  true,
	FamilyPackagingMisc: true,
}

var knownUnits = map[Unit]bool{
	UnitPiece:    true,
	UnitKilogram: true,
	UnitLiter:    true,
	UnitMeter:    true,
}

// KnownFamily reports whether f is one of the eight catalog families.
func KnownFamily(f ProductFamily) bool { return knownFamilies[f] }

// KnownUnit reports whether u is a supported unit of measure.
func KnownUnit(u Unit) bool { return knownUnits[u] }

// Article is a sellable, stockable item. The number is immutable after
// creation; articles are never hard-deleted, only deactivated.
type Article struct {
	ID            int64         `json:"id" db:"id"`
	Number        string        `json:"number" db:"article_no"`
	Designation   string        `json:"designation" db:"designation"`
	Technology    string        `json:"technology" db:"technology"`
	ProductFamily ProductFamily `json:"product_family" db:"product_family"`
	UnitPrice     float64       `json:"unit_price" db:"unit_price"`
	Unit          Unit          `json:"unit" db:"unit"`
	StockOnHand   int           `json:"stock_on_hand" db:"stock_on_hand"`
	StockReserved int           `json:"stock_reserved" db:"stock_reserved"`
	IsActive      bool          `json:"is_active" db:"is_active"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// AvailableStock returns on-hand minus reserved. Callers must treat the value
// as a snapshot, not a lock; only Reserve checks-and-acts atomically.
func (a Article) AvailableStock() int {
	return a.StockOnHand - a.StockReserved
}
