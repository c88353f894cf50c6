package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProductDetail(t *testing.T) {
	t.Run("labeled fields with normalized price", func(t *testing.T) {
		input := "**Name:** Serum\n**Price:** ₹1,200\n**Product Slug:** serum-x\nSKU: 55\n**Availability:** In Stock (12 available)\n"

		d := ParseProductDetail(input)
		require.NotNil(t, d)

		assert.Equal(t, "Serum", d.Name)
		assert.Equal(t, 1200, d.Effective)
		assert.Equal(t, "serum-x", d.Slug)
		assert.Equal(t, int64(55), d.ItemID)
		assert.Equal(t, 12, d.StockCount)
		assert.True(t, d.InStock)
		assert.Contains(t, d.Availability, "In Stock")
	})

	t.Run("nil when no name recovered", func(t *testing.T) {
		assert.Nil(t, ParseProductDetail("**Price:** ₹500\n**Product Slug:** orphan\n"))
	})

	t.Run("mrp with decimals becomes marked price", func(t *testing.T) {
		input := "**Name:** Toner\n**Price:** ₹180\n**MRP:** ₹225.00\n"

		d := ParseProductDetail(input)
		require.NotNil(t, d)
		assert.Equal(t, 180, d.Effective)
		assert.Equal(t, 225, d.Marked)
		assert.Equal(t, d.Price.Marked, d.Marked)
	})

	t.Run("fulfillment fields", func(t *testing.T) {
		input := "**Name:** Moisturizer\n" +
			"**Size:** 50ml\n" +
			"**Return Policy:** 7 day return\n" +
			"**Cash on Delivery:** Yes\n" +
			"**Delivery Estimate:** 2-4 days\n" +
			"**Store:** Glow Beauty\n" +
			"**Store ID:** st_88\n" +
			"**Seller:** Glow Retail Pvt Ltd\n"

		d := ParseProductDetail(input)
		require.NotNil(t, d)
		assert.Equal(t, "50ml", d.Size)
		assert.Equal(t, "7 day return", d.ReturnPolicy)
		assert.True(t, d.Returnable)
		assert.True(t, d.CashOnDelivery)
		assert.Equal(t, "2-4 days", d.DeliveryEstimate)
		assert.Equal(t, "Glow Beauty", d.Store)
		assert.Equal(t, "st_88", d.StoreID)
		assert.Equal(t, "Glow Retail Pvt Ltd", d.Seller)
	})

	t.Run("non-returnable policy", func(t *testing.T) {
		input := "**Name:** Lip Tint\n**Return Policy:** Non-returnable item\n**Cash on Delivery:** No\n"

		d := ParseProductDetail(input)
		require.NotNil(t, d)
		assert.False(t, d.Returnable)
		assert.False(t, d.CashOnDelivery)
	})

	t.Run("specifications section bounded by blank line", func(t *testing.T) {
		input := "**Name:** Hair Oil\n" +
			"**Specifications:**\n" +
			"- Volume: 100ml\n" +
			"- Type: Coconut\n" +
			"\n" +
			"Unrelated trailing prose: ignored\n"

		d := ParseProductDetail(input)
		require.NotNil(t, d)
		require.Len(t, d.Specifications, 2)
		assert.Equal(t, "100ml", d.Specifications["Volume"])
		assert.Equal(t, "Coconut", d.Specifications["Type"])
	})
}
