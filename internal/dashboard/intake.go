package dashboard

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dimidiyP/shinomontaz-base/internal/forms"
)

type intakeField struct {
	field  forms.Field
	input  textinput.Model
	option int
}

// intakeForm is the new-record form generated from the form config.
// Server-managed fields are not shown.
type intakeForm struct {
	cfg    forms.Config
	fields []intakeField
	pos    int
}

func newIntakeForm(cfg forms.Config) intakeForm {
	f := intakeForm{cfg: cfg}
	for _, fld := range cfg.Fields {
		if forms.IsImmutable(fld.Name) {
			continue
		}
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = fld.Label
		f.fields = append(f.fields, intakeField{field: fld, input: in})
	}
	return f
}

func (f *intakeForm) focus() tea.Cmd {
	var cmd tea.Cmd
	for i := range f.fields {
		if i == f.pos && f.fields[i].field.Type != forms.TypeSelect {
			cmd = f.fields[i].input.Focus()
		} else {
			f.fields[i].input.Blur()
		}
	}
	return cmd
}

func (f *intakeForm) move(delta int) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	f.pos = (f.pos + delta + len(f.fields)) % len(f.fields)
	return f.focus()
}

// values returns what was entered, keyed by field name.
func (f *intakeForm) values() map[string]string {
	out := make(map[string]string, len(f.fields))
	for _, fld := range f.fields {
		if fld.field.Type == forms.TypeSelect {
			if len(fld.field.Options) > 0 {
				out[fld.field.Name] = fld.field.Options[fld.option]
			}
			continue
		}
		if v := strings.TrimSpace(fld.input.Value()); v != "" {
			out[fld.field.Name] = v
		}
	}
	return out
}

func (m *Model) updateIntake(msg tea.Msg) (tea.Model, tea.Cmd) {
	f := &m.intake
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.screen = screenRecords
			return m, nil
		case "tab", "down":
			return m, f.move(1)
		case "shift+tab", "up":
			return m, f.move(-1)
		case "left", "right":
			if len(f.fields) > 0 && f.fields[f.pos].field.Type == forms.TypeSelect {
				fld := &f.fields[f.pos]
				n := len(fld.field.Options)
				if n > 0 {
					step := 1
					if k.String() == "left" {
						step = -1
					}
					fld.option = (fld.option + step + n) % n
				}
				return m, nil
			}
		case "enter", "ctrl+s":
			if k.String() == "enter" && f.pos < len(f.fields)-1 {
				return m, f.move(1)
			}
			values := f.values()
			if err := forms.Validate(f.cfg, values); err != nil {
				m.fail(err)
				return m, nil
			}
			m.status = "Сохранение..."
			return m, m.createRecordCmd(values)
		}
	}
	if len(f.fields) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	fld := &f.fields[f.pos]
	fld.input, cmd = fld.input.Update(msg)
	return m, cmd
}

func (m *Model) viewIntake() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Новая запись") + "\n\n")
	for i, fld := range m.intake.fields {
		label := fld.field.Label
		if fld.field.Required {
			label += " *"
		}
		mark := "  "
		if i == m.intake.pos {
			mark = cursorStyle.Render("> ")
		}
		var value string
		if fld.field.Type == forms.TypeSelect {
			if len(fld.field.Options) > 0 {
				value = "< " + fld.field.Options[fld.option] + " >"
			}
		} else {
			value = fld.input.View()
		}
		b.WriteString(mark + label + ": " + value + "\n")
	}
	b.WriteString("\n" + hintStyle.Render("tab=следующее поле  ←/→=вариант  enter=далее/создать  ctrl+s=создать  esc=отмена") + "\n")
	return b.String()
}
