package web

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	assert.Len(t, r.pages, len(Pages))
}

func TestRender_UnknownPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.ErrorContains(t, r.Render(&buf, "missing", nil), `unknown page "missing"`)
	assert.Zero(t, buf.Len())
}

func TestRender_ErrorPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, "error", map[string]any{
		"Title":     "Not found",
		"CartCount": 0,
		"Data": map[string]string{
			"Heading": "Product not found",
			"Message": "<script>",
		},
	}))
	out := buf.String()
	assert.Contains(t, out, "<title>Not found | Mercado</title>")
	assert.Contains(t, out, "Product not found")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestMoney(t *testing.T) {
	money := funcs["money"].(func(decimal.Decimal) string)
	assert.Equal(t, "$39.98", money(decimal.RequireFromString("39.98")))
	assert.Equal(t, "$5.00", money(decimal.NewFromInt(5)))
}
