package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dimidiyP/shinomontaz-base/internal/auth"
	"github.com/dimidiyP/shinomontaz-base/internal/records"
	"github.com/dimidiyP/shinomontaz-base/internal/sheet"
)

const dateLayout = "02.01.2006 15:04"

type tableColumn struct {
	field string
	width int
}

var tableColumns = []tableColumn{
	{records.FieldNumber, 6},
	{records.FieldFullName, 22},
	{records.FieldPhone, 16},
	{records.FieldCarBrand, 14},
	{records.FieldSize, 8},
	{records.FieldStorageLocation, 22},
	{records.FieldStatus, 18},
	{records.FieldCreatedAt, 17},
}

// newRecordsTable frees the letter keys the default table keymap binds
// so they can be used for record actions.
func newRecordsTable() table.Model {
	km := table.DefaultKeyMap()
	km.PageUp = key.NewBinding(key.WithKeys("pgup"))
	km.PageDown = key.NewBinding(key.WithKeys("pgdown"))
	km.HalfPageUp = key.NewBinding(key.WithKeys("ctrl+u"))
	km.HalfPageDown = key.NewBinding(key.WithKeys("ctrl+d"))
	km.GotoTop = key.NewBinding(key.WithKeys("home"))
	km.GotoBottom = key.NewBinding(key.WithKeys("end"))

	t := table.New(
		table.WithColumns(recordColumns(false, records.SortSpec{})),
		table.WithFocused(true),
		table.WithKeyMap(km),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		BorderBottom(true).
		Bold(true)
	st.Selected = st.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#5B8DEF"))
	t.SetStyles(st)
	return t
}

func recordColumns(bulk bool, spec records.SortSpec) []table.Column {
	var cols []table.Column
	if bulk {
		cols = append(cols, table.Column{Title: "", Width: 3})
	}
	for _, c := range tableColumns {
		title := sheet.Title(c.field)
		if spec.Key == c.field {
			if spec.Direction == records.Descending {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		cols = append(cols, table.Column{Title: title, Width: c.width})
	}
	return cols
}

func cell(r records.Record, field string) string {
	switch field {
	case records.FieldNumber:
		if r.Number == 0 {
			return ""
		}
		return strconv.FormatInt(r.Number, 10)
	case records.FieldCreatedAt:
		if t, ok := r.CreatedTime(); ok {
			return t.Format(dateLayout)
		}
	}
	return r.Field(field)
}

// syncTable redraws the table from the board.
func (m *Model) syncTable() {
	tr := m.board.Tracker()
	bulk := tr.BulkMode()
	sel := tr.Selection()

	rows := make([]table.Row, 0, m.board.Len())
	for _, r := range m.board.View() {
		var row table.Row
		if bulk {
			mark := "[ ]"
			if sel.Has(r.ID) {
				mark = "[x]"
			}
			row = append(row, mark)
		}
		for _, c := range tableColumns {
			row = append(row, cell(r, c.field))
		}
		rows = append(rows, row)
	}

	cursor := m.table.Cursor()
	// Rows must never be wider than the columns while they change.
	m.table.SetRows(nil)
	m.table.SetColumns(recordColumns(bulk, m.board.Sort()))
	m.table.SetRows(rows)
	switch {
	case len(rows) == 0:
		m.table.SetCursor(0)
	case cursor >= len(rows):
		m.table.SetCursor(len(rows) - 1)
	default:
		m.table.SetCursor(cursor)
	}
}

func (m *Model) currentRecord() (records.Record, bool) {
	return m.board.Row(m.table.Cursor())
}

func (m *Model) currentFilterField() string {
	return records.FilterableFields[m.filterField%len(records.FilterableFields)]
}

func (m *Model) applyTransition(msg transitionMsg) tea.Cmd {
	if msg.err != nil {
		m.fail(msg.err)
		return nil
	}
	if err := m.board.ApplyTransition(msg.id, msg.t, msg.updated); err != nil {
		// The record left the board while the request was in flight.
		return m.listCmd()
	}
	m.syncTable()
	if msg.t == records.TransitionRelease {
		m.ok("Запись выдана с хранения")
	} else {
		m.ok("Запись взята на хранение")
	}
	return nil
}

func (m *Model) requestTransition(t records.Transition) tea.Cmd {
	r, ok := m.currentRecord()
	if !ok {
		return nil
	}
	if !records.Actions(r, m.identity()).Allows(t) {
		m.err = fmt.Sprintf("Действие недоступно для записи №%d", r.Number)
		return nil
	}
	m.status = "Отправка..."
	return m.transitionCmd(r.ID, t)
}

func (m *Model) updateRecords(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.filtering {
		return m.updateFilter(msg)
	}
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	if cmd, ok := m.navigate(k); ok {
		return m, cmd
	}

	who := m.identity()
	switch k.String() {
	case "q":
		return m, tea.Quit
	case "R":
		m.status = ""
		return m, m.listCmd()
	case "/":
		m.filtering = true
		m.filterInput.Prompt = sheet.Title(m.currentFilterField()) + ": "
		m.filterInput.SetValue(m.board.Filters()[m.currentFilterField()])
		return m, m.filterInput.Focus()
	case "f":
		m.filterField = (m.filterField + 1) % len(records.FilterableFields)
		return m, nil
	case "F":
		m.board.ClearFilters()
		m.syncTable()
		return m, nil
	case "s":
		m.board.SortBy(records.NextSortKey(m.board.Sort().Key))
		m.syncTable()
		return m, m.saveSortCmd(m.board.Sort())
	case "S":
		if !m.board.Sort().Active() {
			return m, nil
		}
		m.board.SortBy(m.board.Sort().Key)
		m.syncTable()
		return m, m.saveSortCmd(m.board.Sort())
	case "b":
		if !auth.HasPermission(who, auth.CapDeleteRecords) {
			m.err = "Недостаточно прав: " + string(auth.CapDeleteRecords)
			return m, nil
		}
		m.board.ToggleBulk()
		m.syncTable()
		return m, nil
	case " ":
		if !m.board.Tracker().BulkMode() {
			break
		}
		if r, ok := m.currentRecord(); ok {
			_ = m.board.ToggleSelected(r.ID)
			m.syncTable()
		}
		return m, nil
	case "a":
		if err := m.board.SelectAll(); err == nil {
			m.syncTable()
		}
		return m, nil
	case "D":
		sel := m.board.Tracker().Selection()
		if !m.board.Tracker().BulkMode() || sel.Len() == 0 {
			m.err = "Ничего не выбрано"
			return m, nil
		}
		m.ask(fmt.Sprintf("Удалить выбранные записи (%d)?", sel.Len()), m.bulkDeleteCmd(sel.IDs()))
		return m, nil
	case "d":
		r, ok := m.currentRecord()
		if !ok {
			return m, nil
		}
		if !records.Actions(r, who).Delete {
			m.err = "Недостаточно прав: " + string(auth.CapDeleteRecords)
			return m, nil
		}
		m.ask(fmt.Sprintf("Удалить запись №%d?", r.Number), m.deleteRecordCmd(r.ID))
		return m, nil
	case "t":
		return m, m.requestTransition(records.TransitionTakeToStorage)
	case "r":
		return m, m.requestTransition(records.TransitionRelease)
	case "p":
		r, ok := m.currentRecord()
		if !ok {
			return m, nil
		}
		if !records.Actions(r, who).PrintAct {
			m.err = "Недостаточно прав: " + string(auth.CapStore)
			return m, nil
		}
		return m, m.pdfCmd(r)
	case "x":
		return m, m.exportCmd(m.board.View())
	case "n":
		if !auth.HasPermission(who, auth.CapStore) {
			m.err = "Недостаточно прав: " + string(auth.CapStore)
			return m, nil
		}
		return m, m.formConfigCmd(true)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) updateFilter(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter":
			m.board.SetFilter(m.currentFilterField(), m.filterInput.Value())
			m.filtering = false
			m.filterInput.Blur()
			m.syncTable()
			return m, nil
		case "esc":
			m.filtering = false
			m.filterInput.Blur()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m *Model) viewRecords() string {
	var b strings.Builder

	var filters []string
	fs := m.board.Filters()
	for _, k := range fs.Keys() {
		filters = append(filters, fmt.Sprintf("%s ~ %q", sheet.Title(k), fs[k]))
	}
	line := fmt.Sprintf("Записей: %d из %d", m.board.Len(), m.board.Total())
	if len(filters) > 0 {
		line += "  Фильтры: " + strings.Join(filters, ", ")
	}
	b.WriteString(hintStyle.Render(line) + "\n")

	if m.filtering {
		b.WriteString(m.filterInput.View() + "\n")
	} else {
		b.WriteString(mutedStyle.Render("Поле фильтра: "+sheet.Title(m.currentFilterField())) + "\n")
	}

	tr := m.board.Tracker()
	if tr.BulkMode() {
		all := "[ ]"
		if m.board.AllSelected() {
			all = "[x]"
		}
		b.WriteString(cursorStyle.Render(fmt.Sprintf("Массовое удаление: выбрано %d  %s все", tr.Selection().Len(), all)) + "\n")
	}

	b.WriteString(m.table.View() + "\n")

	if r, ok := m.currentRecord(); ok {
		b.WriteString(mutedStyle.Render(m.actionHint(r)) + "\n")
	}
	if m.filtering {
		b.WriteString(hintStyle.Render("enter=применить  esc=отмена") + "\n")
	} else {
		b.WriteString(hintStyle.Render("/=фильтр f=поле F=сбросить s=сортировка S=направление n=новая b=массово R=обновить x=в Excel q=выход") + "\n")
	}
	return b.String()
}

func (m *Model) actionHint(r records.Record) string {
	a := records.Actions(r, m.identity())
	var parts []string
	if a.TakeToStorage {
		parts = append(parts, "t=взять на хранение")
	}
	if a.Release {
		parts = append(parts, "r=выдать")
	}
	if a.PrintAct {
		parts = append(parts, "p=акт PDF")
	}
	if a.Delete {
		parts = append(parts, "d=удалить")
		if m.board.Tracker().BulkMode() {
			parts = append(parts, "space=отметить a=все D=удалить отмеченные")
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("№%d: нет доступных действий", r.Number)
	}
	return fmt.Sprintf("№%d: %s", r.Number, strings.Join(parts, "  "))
}
