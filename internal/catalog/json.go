package catalog

import (
	"encoding/json"
	"strconv"
)

// wireProduct is the loose shape the tool server uses when it answers
// in JSON instead of markdown. Field types vary between responses, so
// identifiers are decoded through json.Number tolerant wrappers.
type wireProduct struct {
	UID       flexID     `json:"uid"`
	ID        flexID     `json:"id"`
	Slug      string     `json:"slug"`
	Name      string     `json:"name"`
	Brand     wireBrand  `json:"brand"`
	Images    wireImages `json:"images"`
	Price     wirePrice  `json:"price"`
	Discount  string     `json:"discount"`
	Rating    float64    `json:"rating"`
	ItemID    int64      `json:"item_id"`
	ArticleID flexID     `json:"article_id"`
}

// flexID accepts both string and numeric identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type wireBrand struct {
	Name string `json:"name"`
}

func (b *wireBrand) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		b.Name = s
		return nil
	}
	type alias wireBrand
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	b.Name = a.Name
	return nil
}

// wireImages accepts both ["url", ...] and [{"url": ...}, ...].
type wireImages []string

func (w *wireImages) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			*w = append(*w, s)
			continue
		}
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.URL != "" {
			*w = append(*w, obj.URL)
		}
	}
	return nil
}

type wirePrice struct {
	Effective wirePriceBand `json:"effective"`
	Marked    wirePriceBand `json:"marked"`
}

type wirePriceBand struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ProductsFromJSON maps a structured catalog response onto canonical
// records. It accepts a bare array or an object wrapping the array
// under "products" or "items". Entries missing a name or all
// identifiers are dropped, matching the markdown path's gate.
func ProductsFromJSON(raw json.RawMessage) []ProductRecord {
	var wire []wireProduct
	if err := json.Unmarshal(raw, &wire); err != nil {
		var envelope struct {
			Products []wireProduct `json:"products"`
			Items    []wireProduct `json:"items"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil
		}
		wire = envelope.Products
		if len(wire) == 0 {
			wire = envelope.Items
		}
	}

	records := make([]ProductRecord, 0, len(wire))
	for _, w := range wire {
		rec := ProductRecord{
			ID:        firstID(w.UID, w.ID),
			Name:      w.Name,
			Slug:      w.Slug,
			Brand:     w.Brand.Name,
			Images:    []string(w.Images),
			Discount:  w.Discount,
			Rating:    w.Rating,
			ItemID:    w.ItemID,
			ArticleID: string(w.ArticleID),
		}
		if rec.ItemID == 0 && rec.ID != "" {
			if id, err := strconv.ParseInt(rec.ID, 10, 64); err == nil {
				rec.ItemID = id
			}
		}
		rec.setPrices(int(w.Price.Effective.Min), int(w.Price.Marked.Min))
		if rec.Marked == 0 {
			rec.setPrices(rec.Effective, rec.Effective)
		}

		if rec.Name == "" || (rec.Slug == "" && rec.ID == "" && rec.ItemID == 0) {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func firstID(ids ...flexID) string {
	for _, id := range ids {
		if id != "" {
			return string(id)
		}
	}
	return ""
}
