// Package sheet writes record views to spreadsheets and checks import
// files before they are uploaded.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dimidiyP/shinomontaz-base/internal/errs"
	"github.com/dimidiyP/shinomontaz-base/internal/records"
)

const (
	sheetName  = "Записи"
	dateLayout = "02.01.2006 15:04"
)

// Column maps a record field onto a spreadsheet column.
type Column struct {
	Field string
	Title string
}

// DefaultColumns matches the server's own export layout.
var DefaultColumns = []Column{
	{records.FieldNumber, "Номер"},
	{records.FieldFullName, "ФИО"},
	{records.FieldPhone, "Телефон"},
	{records.FieldPhoneAdditional, "Доп телефон"},
	{records.FieldCarBrand, "Марка машины"},
	{records.FieldParameters, "Параметры"},
	{records.FieldSize, "Размер"},
	{records.FieldStorageLocation, "Место хранения"},
	{records.FieldStatus, "Статус"},
	{records.FieldCreatedAt, "Дата создания"},
	{records.FieldCreatedBy, "Создал"},
	{records.FieldReleasedAt, "Дата выдачи"},
	{records.FieldReleasedBy, "Выдал"},
}

// Title returns the column header for field, or field itself when the
// default layout has no such column.
func Title(field string) string {
	for _, c := range DefaultColumns {
		if c.Field == field {
			return c.Title
		}
	}
	return field
}

// ImportColumns are the headers the server requires in an import file.
var ImportColumns = []string{"ФИО", "Телефон", "Марка машины", "Параметры", "Размер", "Место хранения"}

func cellValue(r records.Record, field string) any {
	switch field {
	case records.FieldNumber:
		if r.Number == 0 {
			return ""
		}
		return r.Number
	case records.FieldCreatedAt:
		if t, ok := r.CreatedTime(); ok {
			return t.Format(dateLayout)
		}
	case records.FieldReleasedAt:
		if t, ok := r.ReleasedTime(); ok {
			return t.Format(dateLayout)
		}
	}
	return r.Field(field)
}

// WriteView writes recs, in the given order, as an .xlsx workbook to w.
// A nil cols uses DefaultColumns.
func WriteView(w io.Writer, recs []records.Record, cols []Column) error {
	if cols == nil {
		cols = DefaultColumns
	}
	if len(cols) == 0 {
		return errors.New("no columns")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}

	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c.Title
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(cols), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
		return err
	}

	for i, r := range recs {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = cellValue(r, c.Field)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(cols))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "A", lastCol, 18); err != nil {
		return err
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// CheckImport verifies that the first sheet of an import file has every
// column the server requires and returns the number of data rows.
func CheckImport(r io.Reader) (int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, errs.Wrap(errs.CodeValidation, err, "not a spreadsheet")
	}
	defer func() { _ = f.Close() }()

	name := f.GetSheetName(0)
	if name == "" {
		return 0, errs.New(errs.CodeValidation, "no worksheet found")
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errs.New(errs.CodeValidation, "empty worksheet")
	}

	have := map[string]bool{}
	for _, h := range rows[0] {
		have[strings.TrimSpace(h)] = true
	}
	var missing []string
	details := map[string]string{}
	for _, c := range ImportColumns {
		if !have[c] {
			missing = append(missing, c)
			details[c] = "is required"
		}
	}
	if len(missing) > 0 {
		return 0, errs.New(errs.CodeValidation, fmt.Sprintf("Missing columns: %s", strings.Join(missing, ", "))).
			WithDetails(details)
	}

	n := 0
	for _, row := range rows[1:] {
		if !blank(row) {
			n++
		}
	}
	return n, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
