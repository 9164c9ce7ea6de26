// Package importer loads catalog records from seed and bulk import files and
// creates them through the product API.
package importer

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/mercado-storefront/internal/domain/product"
)

// Record is one product as written in a seed or import file.
type Record struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Images      []string        `json:"images"`
	Variants    []VariantRecord `json:"variants"`
}

// VariantRecord is one variant group of a Record.
type VariantRecord struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// Key identifies a record for duplicate detection: the product name and
// category, case-insensitive.
func (r Record) Key() string {
	return Key(r.Name, r.Category)
}

// Key builds the duplicate detection key for a product name and category.
func Key(name, category string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "\x00" + strings.ToUpper(strings.TrimSpace(category))
}

// Input converts the record into a validated product.CreateInput.
func (r Record) Input() (product.CreateInput, error) {
	category, err := product.ParseCategory(r.Category)
	if err != nil {
		return product.CreateInput{}, err
	}
	in := product.CreateInput{
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
		Price:       r.Price,
		Stock:       r.Stock,
		Category:    category,
		ImageURLs:   r.Images,
	}
	for _, v := range r.Variants {
		if strings.TrimSpace(v.Name) == "" || len(v.Options) == 0 {
			continue
		}
		in.Variants = append(in.Variants, product.Variant{Name: strings.TrimSpace(v.Name), Options: v.Options})
	}
	if err := in.Validate(); err != nil {
		return product.CreateInput{}, err
	}
	return in, nil
}

// Source yields records to fn until exhausted, stopping at the first error.
type Source func(ctx context.Context, fn func(Record) error) error

// JSONArray reads a single JSON array of records, the seed file format.
func JSONArray(r io.Reader) Source {
	return func(ctx context.Context, fn func(Record) error) error {
		var records []Record
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return errors.Wrap(err, "decode records")
		}
		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	}
}

// NDJSON streams newline-delimited JSON records, the bulk import format.
func NDJSON(r io.Reader) Source {
	return func(ctx context.Context, fn func(Record) error) error {
		dec := json.NewDecoder(r)
		for n := 1; ; n++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec Record
			if err := dec.Decode(&rec); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return errors.Wrapf(err, "decode record %d", n)
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
	}
}
