package importer

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/mercado-storefront/internal/domain/product"
)

type fakeCreator struct {
	mu      sync.Mutex
	created []product.CreateInput
	failOn  string
}

func (f *fakeCreator) Create(_ context.Context, in product.CreateInput) (*product.Product, error) {
	if in.Name == f.failOn {
		return nil, errors.New("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	return &product.Product{ID: in.Name, Name: in.Name}, nil
}

func (f *fakeCreator) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.created))
	for i, in := range f.created {
		out[i] = in.Name
	}
	return out
}

const catalogNDJSON = `{"name":"Logo Tee","description":"Cotton tee","price":19.99,"stock":10,"category":"shirts","variants":[{"name":"Size","options":["S","M"]},{"name":"","options":["x"]}]}
{"name":"Mug","description":"Ceramic","price":"8.50","stock":3,"category":"DRINKWARE"}
{"name":"logo tee","description":"Same tee again","price":19.99,"stock":1,"category":"SHIRTS"}
{"name":"Mystery","description":"?","price":1,"stock":1,"category":"TOYS"}
{"name":"","description":"No name","price":1,"stock":1,"category":"BAGS"}
`

func TestRecordInput(t *testing.T) {
	rec := Record{
		Name:        " Logo Tee ",
		Description: "Cotton tee",
		Price:       decimal.RequireFromString("19.99"),
		Stock:       2,
		Category:    "shirts",
		Variants:    []VariantRecord{{Name: "Size", Options: []string{"S"}}, {Name: "Color"}},
	}

	in, err := rec.Input()
	require.NoError(t, err)
	assert.Equal(t, "Logo Tee", in.Name)
	assert.Equal(t, product.CategoryShirts, in.Category)
	assert.Equal(t, []product.Variant{{Name: "Size", Options: []string{"S"}}}, in.Variants)

	rec.Category = "toys"
	_, err = rec.Input()
	require.ErrorIs(t, err, product.ErrUnknownCategory)
}

func TestImportNDJSON(t *testing.T) {
	c := &fakeCreator{}
	im := New(c, Options{Workers: 2, ExpectedItems: 100})

	require.NoError(t, im.Import(context.Background(), NDJSON(strings.NewReader(catalogNDJSON))))

	assert.ElementsMatch(t, []string{"Logo Tee", "Mug"}, c.names())
	assert.Equal(t, Stats{Created: 2, Duplicates: 1, Invalid: 2}, im.Stats())
}

func TestImportInvalidRecordDoesNotClaimKey(t *testing.T) {
	c := &fakeCreator{}
	im := New(c, Options{ExpectedItems: 100})

	src := `{"name":"Hoodie","description":"","price":40,"stock":1,"category":"HOODIES"}
{"name":"Hoodie","description":"Fleece","price":40,"stock":1,"category":"HOODIES"}
{"name":"hoodie","description":"Fleece again","price":40,"stock":1,"category":"hoodies"}
`
	require.NoError(t, im.Import(context.Background(), NDJSON(strings.NewReader(src))))

	assert.Equal(t, []string{"Hoodie"}, c.names())
	assert.Equal(t, Stats{Created: 1, Duplicates: 1, Invalid: 1}, im.Stats())
}

func TestImportSkipsExisting(t *testing.T) {
	c := &fakeCreator{}
	im := New(c, Options{ExpectedItems: 100})
	im.MarkExisting([]product.Product{{Name: "MUG", Category: product.CategoryDrinkware}})

	require.NoError(t, im.Import(context.Background(), NDJSON(strings.NewReader(catalogNDJSON))))

	assert.Equal(t, []string{"Logo Tee"}, c.names())
	assert.Equal(t, int64(2), im.Stats().Duplicates)
}

func TestImportAcrossSources(t *testing.T) {
	c := &fakeCreator{}
	im := New(c, Options{ExpectedItems: 100})
	ctx := context.Background()

	seed := `[{"name":"Mug","description":"Ceramic","price":8.5,"stock":3,"category":"drinkware"}]`
	require.NoError(t, im.Import(ctx, JSONArray(strings.NewReader(seed))))
	require.NoError(t, im.Import(ctx, NDJSON(strings.NewReader(catalogNDJSON))))

	assert.ElementsMatch(t, []string{"Mug", "Logo Tee"}, c.names())
	assert.Equal(t, Stats{Created: 2, Duplicates: 2, Invalid: 2}, im.Stats())
}

func TestImportDryRun(t *testing.T) {
	c := &fakeCreator{}
	im := New(c, Options{DryRun: true, ExpectedItems: 100})

	require.NoError(t, im.Import(context.Background(), NDJSON(strings.NewReader(catalogNDJSON))))
	assert.Empty(t, c.names())
	assert.Equal(t, int64(2), im.Stats().Created)
}

func TestImportCreateFailure(t *testing.T) {
	c := &fakeCreator{failOn: "Mug"}
	im := New(c, Options{Workers: 1, ExpectedItems: 100})

	err := im.Import(context.Background(), NDJSON(strings.NewReader(catalogNDJSON)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `create "Mug"`)
}

func TestImportDecodeError(t *testing.T) {
	im := New(&fakeCreator{}, Options{ExpectedItems: 100})

	err := im.Import(context.Background(), NDJSON(bytes.NewBufferString("{\"name\":\"ok\"}\n{broken")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode record 2")
}

func TestImportCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(&fakeCreator{}, Options{ExpectedItems: 100}).Import(ctx, NDJSON(strings.NewReader(catalogNDJSON)))
	require.ErrorIs(t, err, context.Canceled)
}
