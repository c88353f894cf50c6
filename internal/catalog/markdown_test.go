package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProductList(t *testing.T) {
	t.Run("single complete entry", func(t *testing.T) {
		input := "**1. Lakme Lipstick**\n**Brand:** Lakme\n**Slug:** `lakme-lip-1`\n**Price:** ₹499\n(17% OFF)\n**Item ID:** 1001\n**Article ID:** 39_1001\n"

		records := ParseProductList(input)
		require.Len(t, records, 1)

		rec := records[0]
		assert.Equal(t, "Lakme Lipstick", rec.Name)
		assert.Equal(t, "Lakme", rec.Brand)
		assert.Equal(t, "lakme-lip-1", rec.Slug)
		assert.Equal(t, 499, rec.Effective)
		assert.Equal(t, "17% OFF", rec.Discount)
		assert.Equal(t, int64(1001), rec.ItemID)
		assert.Equal(t, "39_1001", rec.ArticleID)
	})

	t.Run("nested and flattened prices agree", func(t *testing.T) {
		input := "**1. Night Cream**\n**Slug:** `cream-9`\n**Price:** ₹899 ~~₹1,299~~\n"

		records := ParseProductList(input)
		require.Len(t, records, 1)

		rec := records[0]
		assert.Equal(t, 899, rec.Effective)
		assert.Equal(t, 1299, rec.Marked)
		assert.Equal(t, rec.Effective, rec.Price.Effective)
		assert.Equal(t, rec.Marked, rec.Price.Marked)
	})

	t.Run("marked price falls back to effective", func(t *testing.T) {
		input := "**1. Kajal**\n**Slug:** `kajal-2`\n**Price:** ₹225\n"

		records := ParseProductList(input)
		require.Len(t, records, 1)
		assert.Equal(t, 225, records[0].Effective)
		assert.Equal(t, 225, records[0].Marked)
	})

	t.Run("block without slug is dropped, not fatal", func(t *testing.T) {
		input := "**1. Lakme Lipstick**\n**Slug:** `lakme-lip-1`\n**Price:** ₹499\n" +
			"**2. Mystery Item**\n**Price:** ₹999\n"

		records := ParseProductList(input)
		require.Len(t, records, 1)
		assert.Equal(t, "Lakme Lipstick", records[0].Name)
	})

	t.Run("preamble before first marker is discarded", func(t *testing.T) {
		input := "Found 1 product matching your search:\n\n**1. Face Wash**\n**Slug:** `wash-4`\n"

		records := ParseProductList(input)
		require.Len(t, records, 1)
		assert.Equal(t, "Face Wash", records[0].Name)
	})

	t.Run("no entry markers yields nil", func(t *testing.T) {
		assert.Nil(t, ParseProductList("No products found for this query."))
	})

	t.Run("rating is parsed when present", func(t *testing.T) {
		input := "**1. Sunscreen**\n**Slug:** `sun-1`\n**Rating:** 4.3\n"

		records := ParseProductList(input)
		require.Len(t, records, 1)
		assert.InDelta(t, 4.3, records[0].Rating, 0.001)
	})
}

func TestImageRulePriority(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  string
	}{
		{
			name:  "labeled image link wins over bare cdn url",
			block: "**Image:** [photo](https://img.example.com/a.jpg)\nhttps://cdn.example.com/b.jpg",
			want:  "https://img.example.com/a.jpg",
		},
		{
			name:  "product image link",
			block: "[View Product Image](https://img.example.com/c.jpg)",
			want:  "https://img.example.com/c.jpg",
		},
		{
			name:  "bare cdn url as last resort",
			block: "see https://cdn.shop.example/d.jpg for a preview",
			want:  "https://cdn.shop.example/d.jpg",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := "**1. Thing**\n**Slug:** `thing-1`\n" + tc.block + "\n"
			records := ParseProductList(input)
			require.Len(t, records, 1)
			require.Len(t, records[0].Images, 1)
			assert.Equal(t, tc.want, records[0].Images[0])
		})
	}
}
