// Package records implements the record view engine: field access,
// filtering, sorting, bulk selection and view composition over the
// storage records fetched from the backend.
package records

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Field names of a storage record as the backend spells them.
const (
	FieldID                   = "record_id"
	FieldNumber               = "record_number"
	FieldFullName             = "full_name"
	FieldPhone                = "phone"
	FieldPhoneAdditional      = "phone_additional"
	FieldCarBrand             = "car_brand"
	FieldParameters           = "parameters"
	FieldSize                 = "size"
	FieldStorageLocation      = "storage_location"
	FieldStatus               = "status"
	FieldCreatedAt            = "created_at"
	FieldCreatedBy            = "created_by"
	FieldReleasedAt           = "released_at"
	FieldReleasedBy           = "released_by"
	FieldRetailCRMOrderNumber = "retailcrm_order_number"
	FieldRetailStatusText     = "retail_status_text"
)

// CustomFieldPrefix marks attributes added through the form editor.
const CustomFieldPrefix = "custom_field_"

// StorageLocations is the fixed set of addresses a record can be stored at.
var StorageLocations = []string{
	"Бекетова 3а.к15",
	"Московское шоссе 22к1",
}

// Record is one customer's stored tire set.
//
// Known attributes are typed; everything else the backend sends as a
// string (custom_field_* values in particular) lands in Extra.
type Record struct {
	ID                   string
	Number               int64
	FullName             string
	Phone                string
	PhoneAdditional      string
	CarBrand             string
	Parameters           string
	Size                 string
	StorageLocation      string
	Status               Status
	CreatedAt            string
	CreatedBy            string
	ReleasedAt           string
	ReleasedBy           string
	RetailCRMOrderNumber string
	RetailStatusText     string
	Extra                map[string]string
}

// Field returns the string form of the named attribute.
// Unknown names yield "".
func (r Record) Field(name string) string {
	switch name {
	case FieldID:
		return r.ID
	case FieldNumber:
		if r.Number == 0 {
			return ""
		}
		return strconv.FormatInt(r.Number, 10)
	case FieldFullName:
		return r.FullName
	case FieldPhone:
		return r.Phone
	case FieldPhoneAdditional:
		return r.PhoneAdditional
	case FieldCarBrand:
		return r.CarBrand
	case FieldParameters:
		return r.Parameters
	case FieldSize:
		return r.Size
	case FieldStorageLocation:
		return r.StorageLocation
	case FieldStatus:
		return string(r.Status)
	case FieldCreatedAt:
		return r.CreatedAt
	case FieldCreatedBy:
		return r.CreatedBy
	case FieldReleasedAt:
		return r.ReleasedAt
	case FieldReleasedBy:
		return r.ReleasedBy
	case FieldRetailCRMOrderNumber:
		return r.RetailCRMOrderNumber
	case FieldRetailStatusText:
		return r.RetailStatusText
	}
	return r.Extra[name]
}

// CreatedTime parses CreatedAt. The boolean is false when the value is
// missing or not a recognised timestamp.
func (r Record) CreatedTime() (time.Time, bool) {
	return parseTimestamp(r.CreatedAt)
}

// ReleasedTime parses ReleasedAt.
func (r Record) ReleasedTime() (time.Time, bool) {
	return parseTimestamp(r.ReleasedAt)
}

// timestampLayouts covers what the backend emits (Python isoformat without
// zone, with or without microseconds) plus RFC 3339.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"02.01.2006 15:04",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r.Extra != nil {
		extra := make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			extra[k] = v
		}
		r.Extra = extra
	}
	return r
}

// stringFields maps JSON keys to the typed string attributes.
func (r *Record) stringFields() map[string]*string {
	return map[string]*string{
		FieldID:                   &r.ID,
		FieldFullName:             &r.FullName,
		FieldPhone:                &r.Phone,
		FieldPhoneAdditional:      &r.PhoneAdditional,
		FieldCarBrand:             &r.CarBrand,
		FieldParameters:           &r.Parameters,
		FieldSize:                 &r.Size,
		FieldStorageLocation:      &r.StorageLocation,
		FieldCreatedAt:            &r.CreatedAt,
		FieldCreatedBy:            &r.CreatedBy,
		FieldReleasedAt:           &r.ReleasedAt,
		FieldReleasedBy:           &r.ReleasedBy,
		FieldRetailCRMOrderNumber: &r.RetailCRMOrderNumber,
		FieldRetailStatusText:     &r.RetailStatusText,
	}
}

// UnmarshalJSON accepts the backend's flat record object. Nulls and
// non-string scalars are tolerated so a partial payload never fails the
// whole listing.
func (r *Record) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Record{}
	strs := r.stringFields()
	for key, val := range raw {
		switch {
		case key == FieldNumber:
			r.Number = rawInt(val)
		case key == FieldStatus:
			r.Status = Status(rawString(val))
		case strs[key] != nil:
			*strs[key] = rawString(val)
		case key == "_id":
			// storage engine id, not part of the record
		default:
			s, ok := rawScalar(val)
			if !ok {
				continue
			}
			if r.Extra == nil {
				r.Extra = make(map[string]string)
			}
			r.Extra[key] = s
		}
	}
	return nil
}

// MarshalJSON writes the record back as a flat object.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 16+len(r.Extra))
	for k, v := range r.Extra {
		out[k] = v
	}
	for k, p := range r.stringFields() {
		if *p != "" {
			out[k] = *p
		}
	}
	if r.Number != 0 {
		out[FieldNumber] = r.Number
	}
	if r.Status != "" {
		out[FieldStatus] = string(r.Status)
	}
	return json.Marshal(out)
}

func rawString(val json.RawMessage) string {
	s, _ := rawScalar(val)
	return s
}

// rawScalar renders a JSON string, number or bool as text.
func rawScalar(val json.RawMessage) (string, bool) {
	val = bytes.TrimSpace(val)
	if len(val) == 0 || bytes.Equal(val, []byte("null")) {
		return "", false
	}
	switch val[0] {
	case '"':
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[':
		return "", false
	default:
		return string(val), true
	}
}

func rawInt(val json.RawMessage) int64 {
	s, ok := rawScalar(val)
	if !ok {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
