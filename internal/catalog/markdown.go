package catalog

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dukaanlabs/dukaan/internal/log"
)

// The remote server's markdown is a human-oriented contract, not a
// versioned one. Extraction is therefore a table of independent named
// rules, each recovering one optional field; a block is promoted to a
// record only when it meets the minimum-field invariant, and a rule
// failure in one block never aborts the whole parse.

// entryMarker introduces a new numbered list entry ("**1.", "**2.", ...).
var entryMarker = regexp.MustCompile(`\*\*\d+\.\s*`)

var (
	reListName   = regexp.MustCompile(`^(.*?)\*\*`)
	reBrand      = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Brand:(?:\*\*)?\s*(.+?)\s*$`)
	reSlug       = regexp.MustCompile("(?m)(?:\\*\\*)?Slug:(?:\\*\\*)?\\s*`([^`\n]+)`")
	rePrice      = regexp.MustCompile(`(?m)(?:\*\*)?Price:(?:\*\*)?\s*(?:₹|Rs\.?|INR)?\s*([\d,]+(?:\.\d+)?)`)
	reStrike     = regexp.MustCompile(`~~\s*(?:₹|Rs\.?|INR)?\s*([\d,]+(?:\.\d+)?)\s*~~`)
	reDiscount   = regexp.MustCompile(`\((\d+%\s*OFF)\)`)
	reItemID     = regexp.MustCompile(`(?m)(?:\*\*)?Item ID:(?:\*\*)?\s*(\d+)`)
	reArticleID  = regexp.MustCompile(`(?m)(?:\*\*)?Article ID:(?:\*\*)?\s*(\S+)`)
	reRating     = regexp.MustCompile(`(?m)(?:\*\*)?Rating:(?:\*\*)?\s*([0-9]+(?:\.[0-9]+)?)`)
	reSpecBullet = regexp.MustCompile(`^\s*[-*•]\s*(?:\*\*)?([^:*]+?)(?:\*\*)?:(?:\*\*)?\s*(.+?)\s*$`)
	reSection    = regexp.MustCompile(`^\s*\*\*[A-Za-z][A-Za-z ]*:`)
)

// Image link patterns, tried in priority order; the first match wins.
var imageRules = []*regexp.Regexp{
	regexp.MustCompile(`(?:\*\*)?Image:(?:\*\*)?\s*\[[^\]]*\]\((https?://[^\s)]+)\)`),
	regexp.MustCompile(`\[(?:View\s+)?Product\s+Image\]\((https?://[^\s)]+)\)`),
	regexp.MustCompile(`(https?://cdn\.[^\s)\]]+)`),
}

// listRule extracts one optional field from a list-entry block.
type listRule struct {
	name  string
	apply func(block string, rec *ProductRecord)
}

var listRules = []listRule{
	{"name", func(b string, rec *ProductRecord) {
		if m := reListName.FindStringSubmatch(b); m != nil {
			rec.Name = strings.TrimSpace(m[1])
		}
	}},
	{"brand", func(b string, rec *ProductRecord) {
		if m := reBrand.FindStringSubmatch(b); m != nil {
			rec.Brand = strings.TrimSpace(m[1])
		}
	}},
	{"slug", func(b string, rec *ProductRecord) {
		if m := reSlug.FindStringSubmatch(b); m != nil {
			rec.Slug = strings.TrimSpace(m[1])
		}
	}},
	{"price", func(b string, rec *ProductRecord) {
		effective := 0
		if m := rePrice.FindStringSubmatch(b); m != nil {
			effective = normalizePrice(m[1])
		}
		marked := effective
		if m := reStrike.FindStringSubmatch(b); m != nil {
			marked = normalizePrice(m[1])
		}
		rec.setPrices(effective, marked)
	}},
	{"discount", func(b string, rec *ProductRecord) {
		if m := reDiscount.FindStringSubmatch(b); m != nil {
			rec.Discount = m[1]
		}
	}},
	{"image", func(b string, rec *ProductRecord) {
		for _, re := range imageRules {
			if m := re.FindStringSubmatch(b); m != nil {
				rec.Images = []string{m[1]}
				return
			}
		}
	}},
	{"item_id", func(b string, rec *ProductRecord) {
		if m := reItemID.FindStringSubmatch(b); m != nil {
			if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				rec.ItemID = id
			}
		}
	}},
	{"article_id", func(b string, rec *ProductRecord) {
		if m := reArticleID.FindStringSubmatch(b); m != nil {
			rec.ArticleID = strings.TrimSuffix(m[1], "**")
		}
	}},
	{"rating", func(b string, rec *ProductRecord) {
		if m := reRating.FindStringSubmatch(b); m != nil {
			if r, err := strconv.ParseFloat(m[1], 64); err == nil {
				rec.Rating = r
			}
		}
	}},
}

// ParseProductList recovers product records from enumerated markdown.
// Text before the first entry marker is discarded. Blocks missing the
// name or slug, and blocks whose extraction panics, are skipped.
func ParseProductList(text string) []ProductRecord {
	markers := entryMarker.FindAllStringIndex(text, -1)
	if len(markers) == 0 {
		return nil
	}

	records := make([]ProductRecord, 0, len(markers))
	for i, marker := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		block := text[marker[1]:end]

		if rec, ok := extractListBlock(block); ok {
			records = append(records, rec)
		}
	}
	return records
}

// extractListBlock runs every rule over one block. Extraction is
// best-effort over uncontrolled remote text, so a panicking rule drops
// only this block.
func extractListBlock(block string) (rec ProductRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn(log.CatCatalog, "skipping malformed product block", "panic", r)
			ok = false
		}
	}()

	for _, rule := range listRules {
		rule.apply(block, &rec)
	}
	return rec, rec.viable()
}

// normalizePrice converts a price string with thousands separators
// and optional decimals ("1,200", "225.00") into an integer amount.
func normalizePrice(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(math.Round(f))
}
