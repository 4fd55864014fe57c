package cart

import (
	"testing"

	"bazaar/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func testProduct() model.Product {
	return model.Product{
		ID:         1,
		ShopID:     10,
		Slug:       "tea",
		BasePrice:  dec("500"),
		Stock:      5,
		TrackStock: true,
		Status:     model.ProductActive,
		Variants: []model.ProductVariant{
			{ID: 11, ProductID: 1, SKU: "TEA-S", Price: decimal.NewNullDecimal(dec("300")), Stock: 3, Reserved: 1},
			{ID: 12, ProductID: 1, SKU: "TEA-L", Price: decimal.NewNullDecimal(dec("900")), SalePrice: decimal.NewNullDecimal(dec("750")), Stock: 10},
		},
	}
}

func TestCart_AddOrUpdateLine(t *testing.T) {
	c := New()
	p := testProduct()

	require.NoError(t, c.AddOrUpdateLine(p, nil, 2))
	require.NoError(t, c.AddOrUpdateLine(p, ptr(int64(11)), 1))
	assert.Equal(t, 2, c.Len())

	// Same product and variant updates in place
	require.NoError(t, c.AddOrUpdateLine(p, ptr(int64(11)), 2))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 2, c.Lines()[1].Quantity)

	// Same product without variant is a different line from the variant line
	require.NoError(t, c.AddOrUpdateLine(p, nil, 4))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 4, c.Lines()[0].Quantity)
}

func TestCart_AddOrUpdateLine_Errors(t *testing.T) {
	p := testProduct()

	tests := []struct {
		name      string
		variantID *int64
		quantity  int
		expected  error
	}{
		{name: "Unknown variant", variantID: ptr(int64(99)), quantity: 1, expected: model.ErrVariantNotFound},
		{name: "Zero quantity", quantity: 0, expected: model.ErrInvalidQuantity},
		{name: "Beyond product stock", quantity: 6, expected: model.ErrInvalidQuantity},
		{name: "Beyond variant availability", variantID: ptr(int64(11)), quantity: 3, expected: model.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			err := c.AddOrUpdateLine(p, tt.variantID, tt.quantity)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, 0, c.Len())
		})
	}
}

func TestCart_RemoveLine(t *testing.T) {
	c := New()
	p := testProduct()
	require.NoError(t, c.AddOrUpdateLine(p, nil, 1))
	require.NoError(t, c.AddOrUpdateLine(p, ptr(int64(12)), 1))

	require.NoError(t, c.RemoveLine(0))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(12), c.Lines()[0].Variant.ID)

	err := c.RemoveLine(0)
	assert.ErrorIs(t, err, model.ErrEmptyCartNotAllowed)
	assert.Equal(t, 1, c.Len())

	assert.ErrorIs(t, c.RemoveLine(5), model.ErrLineNotFound)
	assert.ErrorIs(t, c.RemoveLine(-1), model.ErrLineNotFound)
}

func TestCart_ChangeQuantity(t *testing.T) {
	c := New()
	p := testProduct()
	require.NoError(t, c.AddOrUpdateLine(p, ptr(int64(11)), 1))

	qty, err := c.ChangeQuantity(0, +1)
	require.NoError(t, err)
	assert.Equal(t, 2, qty)

	// available = 3 - 1 = 2, so +1 at the cap is ignored
	qty, err = c.ChangeQuantity(0, +1)
	require.NoError(t, err)
	assert.Equal(t, 2, qty)

	qty, err = c.ChangeQuantity(0, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, qty)

	// below 1 is ignored
	qty, err = c.ChangeQuantity(0, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, qty)

	_, err = c.ChangeQuantity(3, 1)
	assert.ErrorIs(t, err, model.ErrLineNotFound)
}

func TestCart_Totals(t *testing.T) {
	c := New()
	p := testProduct()
	require.NoError(t, c.AddOrUpdateLine(p, nil, 2))            // 2 x 500
	require.NoError(t, c.AddOrUpdateLine(p, ptr(int64(12)), 3)) // 3 x 750 (variant sale)

	sum := decimal.Zero
	for i := 0; i < c.Len(); i++ {
		lt, err := c.LineTotal(i)
		require.NoError(t, err)
		sum = sum.Add(lt)
	}

	assert.True(t, dec("3250").Equal(c.Subtotal()), "subtotal %s", c.Subtotal())
	assert.True(t, sum.Equal(c.Subtotal()))

	unit, err := c.UnitPrice(1)
	require.NoError(t, err)
	assert.True(t, dec("750").Equal(unit))
	_, err = c.UnitPrice(2)
	assert.ErrorIs(t, err, model.ErrLineNotFound)
	assert.True(t, c.Total().Equal(c.Subtotal()))
	assert.Equal(t, 5, c.ItemsCount())

	require.NoError(t, c.RemoveLine(1))
	assert.True(t, dec("1000").Equal(c.Subtotal()))
	assert.False(t, c.Subtotal().IsNegative())
}

func TestCart_PriceFollowsSnapshot(t *testing.T) {
	c := New()
	p := testProduct()
	require.NoError(t, c.AddOrUpdateLine(p, nil, 1))

	p.SalePrice = decimal.NewNullDecimal(dec("400"))
	require.NoError(t, c.AddOrUpdateLine(p, nil, 1))

	q, err := c.Quote(0)
	require.NoError(t, err)
	assert.True(t, dec("400").Equal(q.UnitPrice))
	assert.True(t, q.OnSale)
}

func TestCart_ShopIDAndItems(t *testing.T) {
	c := New()
	_, ok := c.ShopID()
	assert.False(t, ok)

	p := testProduct()
	require.NoError(t, c.AddOrUpdateLine(p, ptr(int64(12)), 2))

	shopID, ok := c.ShopID()
	require.True(t, ok)
	assert.Equal(t, int64(10), shopID)

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ProductID)
	require.NotNil(t, items[0].VariantID)
	assert.Equal(t, int64(12), *items[0].VariantID)
	assert.Equal(t, 2, items[0].Quantity)
}
