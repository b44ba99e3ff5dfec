package tuple

import (
	"fmt"
	"strings"
)

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// SortField is one key of a sort specification.
type SortField struct {
	Name  string
	Order Order
}

// Ascending returns an ascending sort key on name.
func Ascending(name string) SortField { return SortField{Name: name, Order: Asc} }

// Descending returns a descending sort key on name.
func Descending(name string) SortField { return SortField{Name: name, Order: Desc} }

func (f SortField) String() string {
	return f.Name + " " + string(f.Order)
}

// Sort is an ordered list of sort keys. A nil Sort means the order is unknown.
type Sort []SortField

// ParseSort parses the wire form "a asc,b desc". A field without a direction is ascending.
func ParseSort(s string) (Sort, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out Sort
	for _, part := range strings.Split(s, ",") {
		words := strings.Fields(part)
		switch len(words) {
		case 1:
			out = append(out, Ascending(words[0]))
		case 2:
			order := Order(strings.ToLower(words[1]))
			if order != Asc && order != Desc {
				return nil, fmt.Errorf("sort: invalid direction %q for %s", words[1], words[0])
			}
			out = append(out, SortField{Name: words[0], Order: order})
		default:
			return nil, fmt.Errorf("sort: invalid clause %q", strings.TrimSpace(part))
		}
	}
	return out, nil
}

// String renders the wire form.
func (s Sort) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

// Known reports whether the sort is declared.
func (s Sort) Known() bool { return len(s) > 0 }

// Leads reports whether the sort starts with field, in any direction.
func (s Sort) Leads(field string) bool {
	return len(s) > 0 && s[0].Name == field
}

// LeadsAscending reports whether the sort starts with field ascending.
func (s Sort) LeadsAscending(field string) bool {
	return s.Leads(field) && s[0].Order == Asc
}

// Compare orders two tuples by the sort keys.
func (s Sort) Compare(a, b Tuple) int {
	for _, f := range s {
		c := CompareField(a, b, f.Name)
		if f.Order == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// Rename returns the sort with field names mapped through renames. Keys whose
// field is not kept are cut, along with every key after them.
func (s Sort) Rename(kept func(string) (string, bool)) Sort {
	var out Sort
	for _, f := range s {
		name, ok := kept(f.Name)
		if !ok {
			break
		}
		out = append(out, SortField{Name: name, Order: f.Order})
	}
	return out
}
