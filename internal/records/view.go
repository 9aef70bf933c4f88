package records

// Compose derives the displayed rows from the source records, the active
// filters and the sort spec. It is a pure function of its inputs.
func Compose(recs []Record, filters FilterSet, spec SortSpec) []Record {
	filtered := ApplyFilters(recs, filters)
	if !spec.Active() {
		return filtered
	}
	return SortRecords(filtered, spec.Key, spec.Direction)
}

// IDs returns the record ids of recs in order.
func IDs(recs []Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

// SortableFields lists the columns the record table can sort by.
var SortableFields = []string{
	FieldNumber,
	FieldFullName,
	FieldPhone,
	FieldCarBrand,
	FieldParameters,
	FieldSize,
	FieldStorageLocation,
	FieldStatus,
	FieldCreatedAt,
}

// FilterableFields lists the columns with a filter input.
var FilterableFields = []string{
	FieldNumber,
	FieldFullName,
	FieldPhone,
	FieldCarBrand,
	FieldSize,
	FieldStorageLocation,
	FieldStatus,
}
