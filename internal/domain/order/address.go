package order

import (
	"strings"
)

// DefaultCountry is the only shipping destination offered at checkout.
const DefaultCountry = "Philippines"

// Address is the shipping address collected at checkout.
type Address struct {
	Street  string
	City    string
	Zip     string
	Country string
}

// IncompleteAddressError lists the required address fields that are blank.
type IncompleteAddressError struct {
	Fields []string
}

func (e *IncompleteAddressError) Error() string {
	return "Please fill in " + strings.Join(e.Fields, ", ")
}

// Normalize trims every field and applies DefaultCountry.
func (a Address) Normalize() Address {
	return Address{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		Zip:     strings.TrimSpace(a.Zip),
		Country: DefaultCountry,
	}
}

// Validate checks that street, city and zip are present.
func (a Address) Validate() error {
	var missing []string
	if strings.TrimSpace(a.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.Zip) == "" {
		missing = append(missing, "zip")
	}
	if len(missing) > 0 {
		return &IncompleteAddressError{Fields: missing}
	}
	return nil
}
