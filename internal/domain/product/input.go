package product

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// CreateInput holds the fields for a new catalog product.
type CreateInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    Category
	ImageURLs   []string
	Variants    []Variant
}

// Validate performs the local checks the admin form enforces before
// submitting. The remote API remains the final authority.
func (in CreateInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return errors.New("name is required")
	case strings.TrimSpace(in.Description) == "":
		return errors.New("description is required")
	case in.Price.IsNegative():
		return errors.New("price must not be negative")
	case in.Stock < 0:
		return errors.New("stock must not be negative")
	}
	if _, err := ParseCategory(string(in.Category)); err != nil {
		return err
	}
	return nil
}

// ParseVariantLines parses one variant group per line in the form
// "Name: opt1, opt2". Lines without a name or without options are dropped
// and options are trimmed.
func ParseVariantLines(text string) []Variant {
	var out []Variant
	for _, line := range strings.Split(text, "\n") {
		name, opts, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var options []string
		for _, o := range strings.Split(opts, ",") {
			if o = strings.TrimSpace(o); o != "" {
				options = append(options, o)
			}
		}
		if len(options) == 0 {
			continue
		}
		out = append(out, Variant{Name: name, Options: options})
	}
	return out
}

// ParseImageURLs splits text into one URL per non-blank line.
func ParseImageURLs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
