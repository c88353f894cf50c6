package catalog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dukaanlabs/dukaan/internal/log"
)

var (
	reDetailName   = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Name:(?:\*\*)?\s*(.+?)\s*$`)
	reDetailSlug   = regexp.MustCompile("(?m)^\\s*(?:\\*\\*)?Product Slug:(?:\\*\\*)?\\s*`?([^`\\s]+)`?")
	reStoreID      = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Store ID:(?:\*\*)?\s*(\S+)`)
	reSKU          = regexp.MustCompile(`(?m)^\s*(?:\*\*)?SKU:(?:\*\*)?\s*(\d+)`)
	reAvailability = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Availability:(?:\*\*)?\s*(.+?)\s*$`)
	reStockCount   = regexp.MustCompile(`(\d+)\s+available`)
	reSize         = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Size:(?:\*\*)?\s*(.+?)\s*$`)
	reReturnPolicy = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Return Policy:(?:\*\*)?\s*(.+?)\s*$`)
	reCOD          = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Cash on Delivery:(?:\*\*)?\s*(.+?)\s*$`)
	reDelivery     = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Delivery Estimate:(?:\*\*)?\s*(.+?)\s*$`)
	reStore        = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Store:(?:\*\*)?\s*(.+?)\s*$`)
	reSeller       = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Seller:(?:\*\*)?\s*(.+?)\s*$`)
	reMRP          = regexp.MustCompile(`(?m)^\s*(?:\*\*)?MRP:(?:\*\*)?\s*(?:₹|Rs\.?|INR)?\s*([\d,]+(?:\.\d+)?)`)
	reSpecsHeader  = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Specifications:?(?:\*\*)?\s*$`)
)

// ParseProductDetail recovers a single product detail record from
// labeled markdown. Returns nil when no name was recovered; every
// other field is optional.
func ParseProductDetail(text string) *ProductDetail {
	defer func() {
		if r := recover(); r != nil {
			log.Warn(log.CatCatalog, "detail extraction failed", "panic", r)
		}
	}()

	var d ProductDetail

	if m := reDetailName.FindStringSubmatch(text); m != nil {
		d.Name = strings.TrimSpace(m[1])
	}
	if d.Name == "" {
		return nil
	}

	if m := reDetailSlug.FindStringSubmatch(text); m != nil {
		d.Slug = m[1]
	}
	if m := reBrand.FindStringSubmatch(text); m != nil {
		d.Brand = strings.TrimSpace(m[1])
	}
	if m := reArticleID.FindStringSubmatch(text); m != nil {
		d.ArticleID = strings.TrimSuffix(m[1], "**")
	}
	if m := reStoreID.FindStringSubmatch(text); m != nil {
		d.StoreID = strings.TrimSuffix(m[1], "**")
	}
	if m := reSKU.FindStringSubmatch(text); m != nil {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			d.ItemID = id
			d.ID = m[1]
		}
	}

	effective := 0
	if m := rePrice.FindStringSubmatch(text); m != nil {
		effective = normalizePrice(m[1])
	}
	marked := effective
	if m := reMRP.FindStringSubmatch(text); m != nil {
		marked = normalizePrice(m[1])
	}
	d.setPrices(effective, marked)

	if m := reAvailability.FindStringSubmatch(text); m != nil {
		d.Availability = m[1]
		d.InStock = strings.Contains(strings.ToLower(m[1]), "in stock")
		if sm := reStockCount.FindStringSubmatch(m[1]); sm != nil {
			d.StockCount, _ = strconv.Atoi(sm[1])
		}
	}
	if m := reSize.FindStringSubmatch(text); m != nil {
		d.Size = m[1]
	}
	if m := reReturnPolicy.FindStringSubmatch(text); m != nil {
		d.ReturnPolicy = m[1]
		d.Returnable = returnableFromPolicy(m[1])
	}
	if m := reCOD.FindStringSubmatch(text); m != nil {
		d.CashOnDelivery = affirmative(m[1])
	}
	if m := reDelivery.FindStringSubmatch(text); m != nil {
		d.DeliveryEstimate = m[1]
	}
	if m := reStore.FindStringSubmatch(text); m != nil {
		d.Store = m[1]
	}
	if m := reSeller.FindStringSubmatch(text); m != nil {
		d.Seller = m[1]
	}
	for _, re := range imageRules {
		if m := re.FindStringSubmatch(text); m != nil {
			d.Images = []string{m[1]}
			break
		}
	}
	if m := reRating.FindStringSubmatch(text); m != nil {
		if r, err := strconv.ParseFloat(m[1], 64); err == nil {
			d.Rating = r
		}
	}

	d.Specifications = parseSpecifications(text)

	return &d
}

// returnableFromPolicy derives the boolean from the policy prose.
func returnableFromPolicy(policy string) bool {
	lower := strings.ToLower(policy)
	if strings.Contains(lower, "non-returnable") ||
		strings.Contains(lower, "no return") ||
		strings.Contains(lower, "not returnable") {
		return false
	}
	return true
}

func affirmative(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "yes") || strings.Contains(lower, "available")
}

// parseSpecifications reads the bullet list under a "Specifications:"
// header into a key-value map. The section is bounded by the first
// blank line or the next labeled section.
func parseSpecifications(text string) map[string]string {
	loc := reSpecsHeader.FindStringIndex(text)
	if loc == nil {
		return nil
	}

	specs := make(map[string]string)
	for _, line := range strings.Split(text[loc[1]:], "\n") {
		if strings.TrimSpace(line) == "" {
			if len(specs) > 0 {
				break
			}
			continue
		}
		if reSection.MatchString(line) {
			break
		}
		if m := reSpecBullet.FindStringSubmatch(line); m != nil {
			specs[strings.TrimSpace(m[1])] = m[2]
		}
	}

	if len(specs) == 0 {
		return nil
	}
	return specs
}
