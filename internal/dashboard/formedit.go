package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dimidiyP/shinomontaz-base/internal/forms"
)

type editMode int

const (
	editNone editMode = iota
	editAdd
	editLabel
	editOptions
)

var fieldTypes = []forms.FieldType{forms.TypeText, forms.TypeTel, forms.TypeEmail, forms.TypeSelect}

// formEditor edits a copy of the form config; nothing reaches the server
// until it is saved.
type formEditor struct {
	cfg    forms.Config
	loaded bool
	dirty  bool
	cursor int
	mode   editMode
	input  textinput.Model
}

func (e *formEditor) load(cfg forms.Config) {
	e.cfg = cfg
	e.loaded = true
	e.dirty = false
	e.mode = editNone
	if e.cursor >= len(cfg.Fields) {
		e.cursor = max(0, len(cfg.Fields)-1)
	}
}

func (e *formEditor) current() (forms.Field, bool) {
	if e.cursor < 0 || e.cursor >= len(e.cfg.Fields) {
		return forms.Field{}, false
	}
	return e.cfg.Fields[e.cursor], true
}

func (e *formEditor) apply(cfg forms.Config, err error) error {
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.dirty = true
	return nil
}

func (e *formEditor) prompt(mode editMode, label, value string) tea.Cmd {
	e.mode = mode
	e.input = textinput.New()
	e.input.Prompt = label + ": "
	e.input.SetValue(value)
	return e.input.Focus()
}

func nextType(t forms.FieldType) forms.FieldType {
	for i, ft := range fieldTypes {
		if ft == t {
			return fieldTypes[(i+1)%len(fieldTypes)]
		}
	}
	return forms.TypeText
}

func (m *Model) updateForms(msg tea.Msg) (tea.Model, tea.Cmd) {
	e := &m.editor
	if e.mode != editNone {
		return m.updateFormPrompt(msg)
	}
	k, ok := msg.(tea.KeyMsg)
	if !ok || !e.loaded {
		return m, nil
	}
	if cmd, ok := m.navigate(k); ok {
		return m, cmd
	}

	f, has := e.current()
	var err error
	switch k.String() {
	case "esc", "q":
		m.screen = screenRecords
		return m, m.listCmd()
	case "up", "k":
		if e.cursor > 0 {
			e.cursor--
		}
	case "down", "j":
		if e.cursor < len(e.cfg.Fields)-1 {
			e.cursor++
		}
	case "K":
		if has && e.cursor > 0 {
			if err = e.apply(e.cfg.Move(e.cursor, e.cursor-1)); err == nil {
				e.cursor--
			}
		}
	case "J":
		if has && e.cursor < len(e.cfg.Fields)-1 {
			if err = e.apply(e.cfg.Move(e.cursor, e.cursor+1)); err == nil {
				e.cursor++
			}
		}
	case "a":
		return m, e.prompt(editAdd, "Название нового поля", "")
	case "e":
		if has {
			return m, e.prompt(editLabel, "Название", f.Label)
		}
	case "o":
		if has {
			return m, e.prompt(editOptions, "Варианты через запятую", strings.Join(f.Options, ", "))
		}
	case "t":
		if has {
			err = e.apply(e.cfg.Retype(f.Name, nextType(f.Type)))
		}
	case "r":
		if has {
			err = e.apply(e.cfg.SetRequired(f.Name, !f.Required))
		}
	case "x":
		if has {
			if err = e.apply(e.cfg.Remove(f.Name)); err == nil && e.cursor >= len(e.cfg.Fields) {
				e.cursor = max(0, len(e.cfg.Fields)-1)
			}
		}
	case "ctrl+s":
		e.dirty = false
		return m, m.saveFormConfigCmd(e.cfg.Clone())
	case "R":
		return m, m.formConfigCmd(false)
	}
	if err != nil {
		m.err = err.Error()
	} else {
		m.err = ""
	}
	return m, nil
}

func (m *Model) updateFormPrompt(msg tea.Msg) (tea.Model, tea.Cmd) {
	e := &m.editor
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			e.mode = editNone
			return m, nil
		case "enter":
			v := e.input.Value()
			mode := e.mode
			e.mode = editNone
			f, _ := e.current()
			var err error
			switch mode {
			case editAdd:
				if err = e.apply(e.cfg.Add(forms.Field{Label: strings.TrimSpace(v), Type: forms.TypeText})); err == nil {
					e.cursor = len(e.cfg.Fields) - 1
				}
			case editLabel:
				err = e.apply(e.cfg.Relabel(f.Name, strings.TrimSpace(v)))
			case editOptions:
				err = e.apply(e.cfg.SetOptions(f.Name, strings.Split(v, ",")))
			}
			if err != nil {
				m.err = err.Error()
			} else {
				m.err = ""
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	e.input, cmd = e.input.Update(msg)
	return m, cmd
}

func (m *Model) viewForms() string {
	e := m.editor
	if !e.loaded {
		return hintStyle.Render("Загрузка конфигурации формы...") + "\n"
	}
	var b strings.Builder
	title := "Поля формы"
	if e.dirty {
		title += " (не сохранено)"
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")
	for i, f := range e.cfg.Fields {
		req := ""
		if f.Required {
			req = " *"
		}
		line := fmt.Sprintf("%-24s %-8s %s%s", f.Label, f.Type, f.Name, req)
		if len(f.Options) > 0 {
			line += " [" + strings.Join(f.Options, " | ") + "]"
		}
		if forms.IsImmutable(f.Name) {
			line = mutedStyle.Render(line + " (системное)")
		}
		if i == e.cursor {
			line = cursorStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	if e.mode != editNone {
		b.WriteString("\n" + e.input.View() + "\n")
		b.WriteString(hintStyle.Render("enter=применить  esc=отмена") + "\n")
		return b.String()
	}
	b.WriteString("\n" + hintStyle.Render("K/J=переместить a=добавить e=название t=тип r=обязательное o=варианты x=удалить ctrl+s=сохранить R=перечитать esc=назад") + "\n")
	return b.String()
}
