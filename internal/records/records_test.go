package records

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(recs []Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.FullName)
	}
	return out
}

func numbers(recs []Record) []int64 {
	out := make([]int64, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Number)
	}
	return out
}

func sample() []Record {
	return []Record{
		{ID: "a", Number: 3, FullName: "Toyota", Phone: "+7-999-1234567", Status: StatusNew, CreatedAt: "2024-03-01T10:00:00"},
		{ID: "b", Number: 1, FullName: "Иванов Иван", Phone: "+7-888-1234567", Status: StatusInStorage, CreatedAt: "2024-01-15T09:30:00.123456"},
		{ID: "c", Number: 4, FullName: "BMW", Phone: "+7-999-7654321", Status: StatusReleased, CreatedAt: "2023-12-31T23:59:59"},
		{ID: "d", Number: 2, FullName: "Петров Пётр", Phone: "+7-777-0000000", Status: StatusInStorage, CreatedAt: "2024-02-10T12:00:00"},
	}
}

func TestRecordJSONKeepsCustomFields(t *testing.T) {
	payload := `{
		"_id": "65f0",
		"record_id": "7c1e",
		"record_number": 42,
		"full_name": "Сидоров",
		"phone": "+7-900",
		"phone_additional": null,
		"status": "Новая",
		"created_at": "2024-05-01T08:00:00.5",
		"custom_field_1700000000": "шипы",
		"custom_field_count": 4,
		"nested": {"x": 1}
	}`
	var r Record
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	assert.Equal(t, "7c1e", r.ID)
	assert.Equal(t, int64(42), r.Number)
	assert.Equal(t, StatusNew, r.Status)
	assert.Equal(t, "", r.PhoneAdditional)
	assert.Equal(t, "шипы", r.Field("custom_field_1700000000"))
	assert.Equal(t, "4", r.Field("custom_field_count"))
	assert.Equal(t, "", r.Field("nested"))
	assert.Equal(t, "", r.Field("_id"))
	assert.Equal(t, "42", r.Field(FieldNumber))

	ts, ok := r.CreatedTime()
	require.True(t, ok)
	assert.Equal(t, 2024, ts.Year())

	b, err := json.Marshal(r)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, "шипы", back["custom_field_1700000000"])
	assert.Equal(t, "Новая", back["status"])
	assert.EqualValues(t, 42, back["record_number"])
}

func TestFieldUnknownKeyIsEmpty(t *testing.T) {
	var r Record
	assert.Equal(t, "", r.Field("no_such_field"))
	assert.Equal(t, "", r.Field(FieldNumber))
}

// The empty filter set is the identity.
func TestApplyFiltersEmptyIsIdentity(t *testing.T) {
	recs := sample()
	assert.Equal(t, recs, ApplyFilters(recs, FilterSet{}))
	assert.Equal(t, recs, ApplyFilters(recs, nil))
	assert.Equal(t, recs, ApplyFilters(recs, FilterSet{FieldFullName: ""}))
}

// The result is an order-preserving subsequence.
func TestApplyFiltersIsOrderedSubsequence(t *testing.T) {
	recs := sample()
	got := ApplyFilters(recs, FilterSet{FieldStatus: "хранени"})

	j := 0
	for _, r := range got {
		for j < len(recs) && recs[j].ID != r.ID {
			j++
		}
		require.Less(t, j, len(recs), "record %s out of order", r.ID)
		j++
	}
	assert.Equal(t, []string{"b", "c", "d"}, IDs(got))
}

func TestApplyFiltersPhoneSubstring(t *testing.T) {
	recs := []Record{
		{ID: "1", Phone: "+7-999-1234567"},
		{ID: "2", Phone: "+7-888-1234567"},
	}
	got := ApplyFilters(recs, FilterSet{FieldPhone: "999"})
	assert.Equal(t, []string{"1"}, IDs(got))
}

func TestApplyFiltersCaseInsensitiveCyrillicAndLatin(t *testing.T) {
	recs := sample()
	assert.Equal(t, []string{"b"}, IDs(ApplyFilters(recs, FilterSet{FieldFullName: "иВАН"})))
	assert.Equal(t, []string{"c"}, IDs(ApplyFilters(recs, FilterSet{FieldFullName: "bm"})))
	assert.Equal(t, []string{"d"}, IDs(ApplyFilters(recs, FilterSet{FieldFullName: "пётр"})))
}

func TestApplyFiltersAllKeysMustMatch(t *testing.T) {
	recs := sample()
	got := ApplyFilters(recs, FilterSet{FieldPhone: "999", FieldFullName: "bmw"})
	assert.Equal(t, []string{"c"}, IDs(got))
}

func TestApplyFiltersUnknownKeyNeverMatches(t *testing.T) {
	assert.Empty(t, ApplyFilters(sample(), FilterSet{"custom_field_x": "a"}))
}

func TestApplyFiltersWhitespaceIsAConstraint(t *testing.T) {
	recs := sample()
	got := ApplyFilters(recs, FilterSet{FieldFullName: " "})
	assert.Equal(t, []string{"b", "d"}, IDs(got))
}

func TestApplyFiltersDoesNotMutateInput(t *testing.T) {
	recs := sample()
	before := sample()
	_ = ApplyFilters(recs, FilterSet{FieldPhone: "999"})
	assert.Equal(t, before, recs)
}

func TestSortByNumberDescIsReverseOfAsc(t *testing.T) {
	recs := sample()
	asc := SortRecords(recs, FieldNumber, Ascending)
	desc := SortRecords(recs, FieldNumber, Descending)
	assert.Equal(t, []int64{1, 2, 3, 4}, numbers(asc))
	for i := range asc {
		assert.Equal(t, asc[i].ID, desc[len(desc)-1-i].ID)
	}
}

func TestSortIsStable(t *testing.T) {
	recs := []Record{
		{ID: "1", Status: StatusInStorage},
		{ID: "2", Status: StatusNew},
		{ID: "3", Status: StatusInStorage},
		{ID: "4", Status: StatusNew},
		{ID: "5", Status: StatusInStorage},
	}
	asc := SortRecords(recs, FieldStatus, Ascending)
	assert.Equal(t, []string{"1", "3", "5", "2", "4"}, IDs(asc))
	desc := SortRecords(recs, FieldStatus, Descending)
	assert.Equal(t, []string{"2", "4", "1", "3", "5"}, IDs(desc))
}

func TestSortCyrillicTierFirst(t *testing.T) {
	recs := []Record{
		{ID: "1", FullName: "Toyota"},
		{ID: "2", FullName: "Иванов"},
		{ID: "3", FullName: "BMW"},
		{ID: "4", FullName: "Петров"},
	}
	asc := SortRecords(recs, FieldFullName, Ascending)
	assert.Equal(t, []string{"Иванов", "Петров", "BMW", "Toyota"}, names(asc))

	desc := SortRecords(recs, FieldFullName, Descending)
	assert.Equal(t, []string{"Петров", "Иванов", "Toyota", "BMW"}, names(desc))
}

func TestSortTextIgnoresCase(t *testing.T) {
	recs := []Record{
		{ID: "1", CarBrand: "volvo"},
		{ID: "2", CarBrand: "Audi"},
		{ID: "3", CarBrand: "bmw"},
		{ID: "4", CarBrand: "яндекс"},
		{ID: "5", CarBrand: "Арбуз"},
	}
	got := SortRecords(recs, FieldCarBrand, Ascending)
	assert.Equal(t, []string{"5", "4", "2", "3", "1"}, IDs(got))
}

func TestSortByCreatedAtIsChronological(t *testing.T) {
	got := SortRecords(sample(), FieldCreatedAt, Ascending)
	assert.Equal(t, []string{"c", "b", "d", "a"}, IDs(got))
}

func TestSortUnparseableTimesFirstAndTotal(t *testing.T) {
	recs := []Record{
		{ID: "1", CreatedAt: "2024-01-01T00:00:00"},
		{ID: "2", CreatedAt: "garbage"},
		{ID: "3"},
	}
	got := SortRecords(recs, FieldCreatedAt, Ascending)
	assert.Equal(t, []string{"2", "3", "1"}, IDs(got))
}

func TestSortDoesNotMutateInput(t *testing.T) {
	recs := sample()
	_ = SortRecords(recs, FieldFullName, Descending)
	assert.Equal(t, sample(), recs)
}

func TestSortSpecSelect(t *testing.T) {
	var s SortSpec
	s = s.Select(FieldFullName)
	assert.Equal(t, SortSpec{Key: FieldFullName, Direction: Ascending}, s)
	s = s.Select(FieldFullName)
	assert.Equal(t, SortSpec{Key: FieldFullName, Direction: Descending}, s)
	s = s.Select(FieldPhone)
	assert.Equal(t, SortSpec{Key: FieldPhone, Direction: Ascending}, s)
}

func TestComposeIsIdempotent(t *testing.T) {
	recs := sample()
	f := FilterSet{FieldPhone: "+7"}
	spec := SortSpec{Key: FieldFullName, Direction: Descending}
	first := Compose(recs, f, spec)
	second := Compose(recs, f, spec)
	assert.Equal(t, first, second)
	assert.Len(t, first, 4)
}

func TestComposeWithoutSortOnlyFilters(t *testing.T) {
	recs := sample()
	got := Compose(recs, FilterSet{FieldPhone: "999"}, SortSpec{})
	assert.Equal(t, []string{"a", "c"}, IDs(got))
}

func TestSortSpecRoundTrip(t *testing.T) {
	for _, spec := range []SortSpec{
		{},
		{Key: FieldFullName, Direction: Ascending},
		{Key: FieldCreatedAt, Direction: Descending},
	} {
		got, err := ParseSortSpec(spec.String())
		require.NoError(t, err)
		assert.Equal(t, spec, got)
	}

	got, err := ParseSortSpec("phone")
	require.NoError(t, err)
	assert.Equal(t, SortSpec{Key: FieldPhone}, got)

	_, err = ParseSortSpec("custom_field_x:asc")
	assert.Error(t, err)
	_, err = ParseSortSpec("phone:up")
	assert.Error(t, err)
}

func TestNextSortKeyWraps(t *testing.T) {
	assert.Equal(t, SortableFields[0], NextSortKey(""))
	assert.Equal(t, SortableFields[1], NextSortKey(SortableFields[0]))
	assert.Equal(t, SortableFields[0], NextSortKey(SortableFields[len(SortableFields)-1]))
}
