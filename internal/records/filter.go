package records

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// FilterSet maps a field name to a substring the field must contain.
// Absent and empty entries impose no constraint.
type FilterSet map[string]string

// Clone returns a copy of f.
func (f FilterSet) Clone() FilterSet {
	out := make(FilterSet, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	return out
}

// With returns a copy of f with field set to value. An empty value drops
// the entry.
func (f FilterSet) With(field, value string) FilterSet {
	out := f.Clone()
	if value == "" {
		delete(out, field)
	} else {
		out[field] = value
	}
	return out
}

// Active reports whether any entry constrains the result.
func (f FilterSet) Active() bool {
	for _, v := range f {
		if v != "" {
			return true
		}
	}
	return false
}

// Keys returns the constraining field names in sorted order.
func (f FilterSet) Keys() []string {
	keys := make([]string, 0, len(f))
	for k, v := range f {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

type matcher struct {
	field  string
	needle string
}

// ApplyFilters returns the records whose fields contain every non-empty
// filter value, compared case-insensitively. Relative order is kept and
// the input slice is never modified. A value made only of whitespace is
// a real constraint and matches only fields containing that whitespace.
func ApplyFilters(recs []Record, filters FilterSet) []Record {
	fold := cases.Fold()
	var ms []matcher
	for _, k := range filters.Keys() {
		ms = append(ms, matcher{field: k, needle: fold.String(filters[k])})
	}

	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if matchesAll(r, ms, fold) {
			out = append(out, r)
		}
	}
	return out
}

func matchesAll(r Record, ms []matcher, fold cases.Caser) bool {
	for _, m := range ms {
		if !strings.Contains(fold.String(r.Field(m.field)), m.needle) {
			return false
		}
	}
	return true
}
