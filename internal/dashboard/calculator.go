package dashboard

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dimidiyP/shinomontaz-base/internal/calc"
)

const defaultWheels = 4

// calcForm collects a calculator request. The local estimate is shown
// as the user types; enter asks the server for the authoritative one.
type calcForm struct {
	vehicle  calc.VehicleType
	settings *calc.Settings
	sizes    []string
	size     int
	wheels   int
	cursor   int
	services []string
	options  []string
	server   *calc.Result
}

func newCalcForm(v calc.VehicleType) calcForm {
	return calcForm{vehicle: v, wheels: defaultWheels}
}

func (c *calcForm) setSettings(s calc.Settings) {
	c.settings = &s
	if s.VehicleType != "" {
		c.vehicle = s.VehicleType
	}
	c.sizes = s.Sizes()
	c.size = 0
	c.cursor = 0
	c.services = nil
	c.options = nil
	c.server = nil
}

func (c *calcForm) enabledServices() []calc.Service {
	if c.settings == nil {
		return nil
	}
	var out []calc.Service
	for _, s := range c.settings.Services {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// rows is the number of toggleable lines: enabled services then options.
func (c *calcForm) rows() int {
	if c.settings == nil {
		return 0
	}
	return len(c.enabledServices()) + len(c.settings.AdditionalOptions)
}

func toggle(ids []string, id string) []string {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(slices.Clone(ids), i, i+1)
	}
	return append(slices.Clone(ids), id)
}

func (c *calcForm) toggleCurrent() {
	svcs := c.enabledServices()
	if c.cursor < len(svcs) {
		c.services = toggle(c.services, svcs[c.cursor].ID)
		return
	}
	i := c.cursor - len(svcs)
	if c.settings != nil && i < len(c.settings.AdditionalOptions) {
		c.options = toggle(c.options, c.settings.AdditionalOptions[i].ID)
	}
}

func (c *calcForm) request() calc.Request {
	req := calc.Request{
		VehicleType:       c.vehicle,
		WheelCount:        c.wheels,
		SelectedServices:  slices.Clone(c.services),
		AdditionalOptions: slices.Clone(c.options),
	}
	if c.size < len(c.sizes) {
		req.TireSize = c.sizes[c.size]
	}
	return req
}

func (m *Model) updateCalc(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if cmd, ok := m.navigate(k); ok {
		return m, cmd
	}
	c := &m.calc
	c.server = nil
	switch k.String() {
	case "esc", "q":
		m.screen = screenRecords
		return m, m.listCmd()
	case "v":
		next := calc.Truck
		if c.vehicle == calc.Truck {
			next = calc.Passenger
		}
		c.vehicle = next
		c.settings = nil
		return m, m.calcSettingsCmd(next)
	case "left":
		if len(c.sizes) > 0 {
			c.size = (c.size - 1 + len(c.sizes)) % len(c.sizes)
		}
	case "right":
		if len(c.sizes) > 0 {
			c.size = (c.size + 1) % len(c.sizes)
		}
	case "+", "=":
		if c.wheels < 12 {
			c.wheels++
		}
	case "-":
		if c.wheels > 1 {
			c.wheels--
		}
	case "up", "k":
		if c.cursor > 0 {
			c.cursor--
		}
	case "down", "j":
		if c.cursor < c.rows()-1 {
			c.cursor++
		}
	case " ":
		c.toggleCurrent()
	case "enter":
		return m, m.calculateCmd(c.request())
	}
	return m, nil
}

func (m *Model) viewCalc() string {
	c := m.calc
	var b strings.Builder
	kind := "легковой"
	if c.vehicle == calc.Truck {
		kind = "грузовой"
	}
	b.WriteString(titleStyle.Render("Калькулятор шиномонтажа: "+kind) + "\n\n")
	if c.settings == nil {
		b.WriteString(hintStyle.Render("Загрузка настроек...") + "\n")
		return b.String()
	}

	size := "-"
	if c.size < len(c.sizes) {
		size = c.sizes[c.size]
	}
	b.WriteString(fmt.Sprintf("Размер: < %s >   Колёс: %d   Ставка: %.0f ₽/ч\n\n", size, c.wheels, c.settings.HourlyRate))

	row := 0
	line := func(selected bool, text string) {
		mark := "[ ]"
		if selected {
			mark = "[x]"
		}
		s := mark + " " + text
		if row == c.cursor {
			s = cursorStyle.Render("> " + s)
		} else {
			s = "  " + s
		}
		b.WriteString(s + "\n")
		row++
	}
	b.WriteString("Услуги:\n")
	for _, s := range c.enabledServices() {
		text := s.Name
		if mins, ok := s.TimeBySize[size]; ok {
			text += fmt.Sprintf(" (%d мин/колесо)", mins)
		}
		line(slices.Contains(c.services, s.ID), text)
	}
	if len(c.settings.AdditionalOptions) > 0 {
		b.WriteString("Дополнительно:\n")
		for _, o := range c.settings.AdditionalOptions {
			line(slices.Contains(c.options, o.ID), fmt.Sprintf("%s (x%.2g)", o.Name, o.TimeMultiplier))
		}
	}

	b.WriteString("\n")
	if len(c.services) > 0 {
		if est, err := calc.Estimate(*c.settings, c.request()); err == nil {
			b.WriteString(fmt.Sprintf("Предварительно: %d мин, %d ₽\n", est.TotalTime, est.TotalCost))
		} else {
			b.WriteString(mutedStyle.Render("Предварительно: "+err.Error()) + "\n")
		}
	}
	if c.server != nil {
		b.WriteString(okStyle.Render(fmt.Sprintf("Расчёт сервера: %d мин, %d ₽ (база %d мин, коэффициент %.2f)",
			c.server.TotalTime, c.server.TotalCost, c.server.Breakdown.BaseTime, c.server.Breakdown.Multiplier)) + "\n")
	}
	b.WriteString("\n" + hintStyle.Render("v=тип авто  ←/→=размер  +/-=колёса  space=выбрать  enter=рассчитать  esc=назад") + "\n")
	return b.String()
}
