package records

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Direction is the order of a sorted view.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// SortSpec is the active sort column. An empty Key means unsorted.
type SortSpec struct {
	Key       string
	Direction Direction
}

// Select applies a column-header click: the same key toggles direction,
// a different key becomes active in ascending order.
func (s SortSpec) Select(key string) SortSpec {
	if key == s.Key && key != "" {
		return SortSpec{Key: key, Direction: s.Direction.Flip()}
	}
	return SortSpec{Key: key, Direction: Ascending}
}

// Active reports whether a sort key is set.
func (s SortSpec) Active() bool { return s.Key != "" }

// String encodes s as "key:asc" or "key:desc"; unsorted is "".
func (s SortSpec) String() string {
	if !s.Active() {
		return ""
	}
	return s.Key + ":" + s.Direction.String()
}

// ParseSortSpec reverses String. A bare key sorts ascending.
func ParseSortSpec(v string) (SortSpec, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return SortSpec{}, nil
	}
	key, dir, _ := strings.Cut(v, ":")
	if !slices.Contains(SortableFields, key) {
		return SortSpec{}, fmt.Errorf("field %q is not sortable", key)
	}
	switch dir {
	case "", "asc":
		return SortSpec{Key: key, Direction: Ascending}, nil
	case "desc":
		return SortSpec{Key: key, Direction: Descending}, nil
	}
	return SortSpec{}, fmt.Errorf("unknown sort direction %q", dir)
}

// NextSortKey returns the sortable field after key, wrapping around.
func NextSortKey(key string) string {
	i := slices.Index(SortableFields, key)
	return SortableFields[(i+1)%len(SortableFields)]
}

// fieldKind decides how values of a field compare.
type fieldKind int

const (
	kindText fieldKind = iota
	kindNumber
	kindTime
)

func kindOf(field string) fieldKind {
	switch field {
	case FieldNumber:
		return kindNumber
	case FieldCreatedAt, FieldReleasedAt:
		return kindTime
	}
	return kindText
}

// SortRecords returns a stably sorted copy of recs.
//
// Numbers compare numerically and timestamps chronologically. Text is
// compared case-insensitively with Russian collation, and a value holding
// any Cyrillic letter always sorts before one holding none; direction
// only reverses the order inside each of those two tiers.
func SortRecords(recs []Record, key string, dir Direction) []Record {
	out := slices.Clone(recs)
	if out == nil {
		out = []Record{}
	}
	if key == "" {
		return out
	}
	cmpFn := comparator(key, dir)
	slices.SortStableFunc(out, cmpFn)
	return out
}

func comparator(key string, dir Direction) func(a, b Record) int {
	sign := 1
	if dir == Descending {
		sign = -1
	}
	switch kindOf(key) {
	case kindNumber:
		return func(a, b Record) int {
			return sign * cmp.Compare(a.Number, b.Number)
		}
	case kindTime:
		return func(a, b Record) int {
			ta, _ := parseTimestamp(a.Field(key))
			tb, _ := parseTimestamp(b.Field(key))
			return sign * ta.Compare(tb)
		}
	}
	col := collate.New(language.Russian, collate.IgnoreCase)
	return func(a, b Record) int {
		return compareTiered(col, a.Field(key), b.Field(key), sign)
	}
}

// compareTiered puts Cyrillic values first regardless of sign and applies
// sign to the collation order within a tier.
func compareTiered(col *collate.Collator, a, b string, sign int) int {
	ca, cb := hasCyrillic(a), hasCyrillic(b)
	if ca != cb {
		if ca {
			return -1
		}
		return 1
	}
	return sign * col.CompareString(a, b)
}

func hasCyrillic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) && unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
