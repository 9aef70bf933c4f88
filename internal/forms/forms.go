// Package forms edits the intake-form configuration and validates values
// entered against it.
package forms

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dimidiyP/shinomontaz-base/internal/errs"
	"github.com/dimidiyP/shinomontaz-base/internal/records"
	"github.com/dimidiyP/shinomontaz-base/internal/validate"
)

// FieldType controls the input widget and the value check.
type FieldType string

const (
	TypeText   FieldType = "text"
	TypeTel    FieldType = "tel"
	TypeEmail  FieldType = "email"
	TypeSelect FieldType = "select"
)

// ParseFieldType rejects unknown widget types.
func ParseFieldType(s string) (FieldType, error) {
	switch t := FieldType(strings.TrimSpace(s)); t {
	case TypeText, TypeTel, TypeEmail, TypeSelect:
		return t, nil
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

// Field is one input of the intake form.
type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

// Config is the ordered list of intake-form fields.
type Config struct {
	Fields []Field `json:"fields"`
}

// immutable names are backend-managed and may only be reordered.
var immutable = []string{
	records.FieldNumber,
	records.FieldCreatedAt,
	records.FieldStatus,
	records.FieldCreatedBy,
}

var (
	ErrImmutable     = errors.New("field is managed by the server")
	ErrUnknownField  = errors.New("unknown field")
	ErrDuplicateName = errors.New("field name already exists")
	ErrNoOptions     = errors.New("select field needs at least one option")
)

// IsImmutable reports whether the named field is backend-managed.
func IsImmutable(name string) bool { return slices.Contains(immutable, name) }

// Default returns the form the backend seeds on first start.
func Default() Config {
	return Config{Fields: []Field{
		{Name: records.FieldFullName, Label: "ФИО", Type: TypeText, Required: true},
		{Name: records.FieldPhone, Label: "Номер телефона", Type: TypeText, Required: true},
		{Name: records.FieldPhoneAdditional, Label: "Доп номер телефона", Type: TypeText},
		{Name: records.FieldCarBrand, Label: "Марка машины", Type: TypeText, Required: true},
		{Name: records.FieldParameters, Label: "Параметры", Type: TypeText, Required: true},
		{Name: records.FieldSize, Label: "Размер", Type: TypeText, Required: true},
		{Name: records.FieldStorageLocation, Label: "Место хранения", Type: TypeSelect, Required: true,
			Options: slices.Clone(records.StorageLocations)},
	}}
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := Config{Fields: make([]Field, len(c.Fields))}
	for i, f := range c.Fields {
		f.Options = slices.Clone(f.Options)
		out.Fields[i] = f
	}
	return out
}

// Index returns the position of the named field or -1.
func (c Config) Index(name string) int {
	return slices.IndexFunc(c.Fields, func(f Field) bool { return f.Name == name })
}

// Lookup returns the named field.
func (c Config) Lookup(name string) (Field, bool) {
	i := c.Index(name)
	if i < 0 {
		return Field{}, false
	}
	return c.Fields[i], true
}

// NewFieldName returns a fresh custom_field_* name.
func NewFieldName() string {
	return records.CustomFieldPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Add appends f. A field without a name gets a generated custom name.
func (c Config) Add(f Field) (Config, error) {
	if f.Name == "" {
		f.Name = NewFieldName()
	}
	if c.Index(f.Name) >= 0 {
		return c, ErrDuplicateName
	}
	if IsImmutable(f.Name) {
		return c, ErrImmutable
	}
	if f.Type == "" {
		f.Type = TypeText
	}
	if strings.TrimSpace(f.Label) == "" {
		return c, errors.New("label is required")
	}
	if f.Type == TypeSelect && len(f.Options) == 0 {
		return c, ErrNoOptions
	}
	out := c.Clone()
	f.Options = slices.Clone(f.Options)
	out.Fields = append(out.Fields, f)
	return out, nil
}

func (c Config) edit(name string, fn func(*Field) error) (Config, error) {
	i := c.Index(name)
	if i < 0 {
		return c, ErrUnknownField
	}
	if IsImmutable(name) {
		return c, ErrImmutable
	}
	out := c.Clone()
	if err := fn(&out.Fields[i]); err != nil {
		return c, err
	}
	return out, nil
}

// Relabel changes the visible label of a field.
func (c Config) Relabel(name, label string) (Config, error) {
	return c.edit(name, func(f *Field) error {
		if strings.TrimSpace(label) == "" {
			return errors.New("label is required")
		}
		f.Label = label
		return nil
	})
}

// Retype changes the widget type. Leaving select drops the options.
func (c Config) Retype(name string, t FieldType) (Config, error) {
	return c.edit(name, func(f *Field) error {
		if _, err := ParseFieldType(string(t)); err != nil {
			return err
		}
		if t == TypeSelect && len(f.Options) == 0 {
			return ErrNoOptions
		}
		f.Type = t
		if t != TypeSelect {
			f.Options = nil
		}
		return nil
	})
}

// SetRequired toggles the required flag.
func (c Config) SetRequired(name string, required bool) (Config, error) {
	return c.edit(name, func(f *Field) error {
		f.Required = required
		return nil
	})
}

// SetOptions replaces the choices of a select field. Blank and repeated
// options are dropped.
func (c Config) SetOptions(name string, options []string) (Config, error) {
	return c.edit(name, func(f *Field) error {
		var clean []string
		for _, o := range options {
			o = strings.TrimSpace(o)
			if o != "" && !slices.Contains(clean, o) {
				clean = append(clean, o)
			}
		}
		if f.Type == TypeSelect && len(clean) == 0 {
			return ErrNoOptions
		}
		f.Options = clean
		return nil
	})
}

// Move relocates the field at from to position to. Any field may move.
func (c Config) Move(from, to int) (Config, error) {
	n := len(c.Fields)
	if from < 0 || from >= n || to < 0 || to >= n {
		return c, fmt.Errorf("move %d->%d: index out of range", from, to)
	}
	out := c.Clone()
	f := out.Fields[from]
	out.Fields = slices.Delete(out.Fields, from, from+1)
	out.Fields = slices.Insert(out.Fields, to, f)
	return out, nil
}

// Remove deletes a field.
func (c Config) Remove(name string) (Config, error) {
	i := c.Index(name)
	if i < 0 {
		return c, ErrUnknownField
	}
	if IsImmutable(name) {
		return c, ErrImmutable
	}
	out := c.Clone()
	out.Fields = slices.Delete(out.Fields, i, i+1)
	return out, nil
}

// Validate checks values entered into the intake form. Immutable fields
// are filled in by the server and skipped. All problems are reported
// together as field details of one validation error.
func Validate(c Config, values map[string]string) error {
	details := map[string]string{}
	for _, f := range c.Fields {
		if IsImmutable(f.Name) {
			continue
		}
		v := strings.TrimSpace(values[f.Name])
		if v == "" {
			if f.Required {
				details[f.Name] = "is required"
			}
			continue
		}
		switch f.Type {
		case TypeSelect:
			if !slices.Contains(f.Options, v) {
				details[f.Name] = "must be one of the options"
			}
		case TypeTel:
			if validate.Phone(v) != nil {
				details[f.Name] = "must be a valid phone number"
			}
		case TypeEmail:
			if validate.Email(v) != nil {
				details[f.Name] = "must be a valid email"
			}
		}
	}
	if len(details) > 0 {
		return errs.New(errs.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}
