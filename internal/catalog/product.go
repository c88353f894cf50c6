// Package catalog recovers structured product records from the tool
// server's heterogeneous catalog responses: prose-like markdown for
// most queries, structured JSON for the rest. Both paths converge on
// the same canonical record shapes so downstream consumers never need
// to know which one produced a record.
package catalog

// PriceInfo is the nested price representation.
type PriceInfo struct {
	Effective int `json:"effective"`
	Marked    int `json:"marked"`
}

// ProductRecord is the canonical normalized product shape.
//
// The price appears both nested and flattened because downstream
// consumers expect either; the two representations always agree.
// A record is only emitted when at minimum a name and a resolvable
// identifier (slug or item id) were recovered.
type ProductRecord struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Brand     string    `json:"brand,omitempty"`
	Images    []string  `json:"images,omitempty"`
	Price     PriceInfo `json:"price"`
	Effective int       `json:"effectivePrice"`
	Marked    int       `json:"markedPrice"`
	Discount  string    `json:"discount,omitempty"`
	Rating    float64   `json:"rating,omitempty"`
	ItemID    int64     `json:"itemId,omitempty"`
	ArticleID string    `json:"articleId,omitempty"`
}

// setPrices keeps the nested and flattened representations in sync.
func (p *ProductRecord) setPrices(effective, marked int) {
	p.Price = PriceInfo{Effective: effective, Marked: marked}
	p.Effective = effective
	p.Marked = marked
}

// viable reports whether a list-form record met the minimum-field
// invariant. Partial blocks are dropped rather than emitted with
// null-poisoned fields.
func (p *ProductRecord) viable() bool {
	return p.Name != "" && p.Slug != ""
}

// ProductDetail is the canonical single-product shape: a superset of
// ProductRecord plus availability, fulfillment, and an open
// specification map. Gated on name presence only.
type ProductDetail struct {
	ProductRecord
	Availability     string            `json:"availability,omitempty"`
	InStock          bool              `json:"inStock"`
	StockCount       int               `json:"stockCount,omitempty"`
	Size             string            `json:"size,omitempty"`
	ReturnPolicy     string            `json:"returnPolicy,omitempty"`
	Returnable       bool              `json:"returnable"`
	CashOnDelivery   bool              `json:"cashOnDelivery"`
	DeliveryEstimate string            `json:"deliveryEstimate,omitempty"`
	Store            string            `json:"store,omitempty"`
	StoreID          string            `json:"storeId,omitempty"`
	Seller           string            `json:"seller,omitempty"`
	Specifications   map[string]string `json:"specifications,omitempty"`
}
