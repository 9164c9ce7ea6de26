package product

import (
	"fmt"
	"strings"
)

// MissingVariantsError indicates that one or more variant groups have no
// selected value.
type MissingVariantsError struct {
	Names []string
}

func (e *MissingVariantsError) Error() string {
	return "Please select " + strings.Join(e.Names, ", ")
}

// InvalidOptionError indicates a selected value that is not one of the
// group's allowed options.
type InvalidOptionError struct {
	Variant string
	Value   string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("Invalid %s option %q", e.Variant, e.Value)
}

// SelectVariants checks that every variant group on the product has a chosen
// value and returns one Selection per group in product order. Entries in
// selected that do not name a variant group are ignored.
func (p Product) SelectVariants(selected map[string]string) ([]Selection, error) {
	var missing []string
	for _, v := range p.Variants {
		if selected[v.Name] == "" {
			missing = append(missing, v.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingVariantsError{Names: missing}
	}

	out := make([]Selection, 0, len(p.Variants))
	for _, v := range p.Variants {
		value := selected[v.Name]
		if !v.HasOption(value) {
			return nil, &InvalidOptionError{Variant: v.Name, Value: value}
		}
		out = append(out, Selection{Name: v.Name, Value: value})
	}
	return out, nil
}
