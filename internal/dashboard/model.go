// Package dashboard implements the interactive tire-storage dashboard
// using Bubble Tea.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dimidiyP/shinomontaz-base/internal/auth"
	"github.com/dimidiyP/shinomontaz-base/internal/calc"
	"github.com/dimidiyP/shinomontaz-base/internal/errs"
	"github.com/dimidiyP/shinomontaz-base/internal/records"
)

// screen is the page currently shown.
type screen int

const (
	screenLogin screen = iota
	screenRecords
	screenIntake
	screenUsers
	screenNewUser
	screenEditUser
	screenForms
	screenTemplate
	screenCalc
)

type tab struct {
	key    string
	title  string
	screen screen
	need   auth.Capability
}

// tabs are reachable with their number key once signed in. An empty
// need means any signed-in user.
var tabs = []tab{
	{"1", "Записи", screenRecords, ""},
	{"2", "Пользователи", screenUsers, auth.CapUserManagement},
	{"3", "Форма", screenForms, auth.CapFormManagement},
	{"4", "Шаблон акта", screenTemplate, auth.CapPDFManagement},
	{"5", "Калькулятор", screenCalc, ""},
}

// Options configures a dashboard.
type Options struct {
	Backend Backend
	// Store is optional; without it logins are not remembered.
	Store  SessionStore
	Server string
	// Session resumes a cached login and skips the login screen.
	Session     *auth.Session
	Username    string
	Sort        records.SortSpec
	DownloadDir string
	Timeout     time.Duration
	Logger      *slog.Logger
	Context     context.Context
	Now         func() time.Time
}

type confirmation struct {
	prompt string
	cmd    tea.Cmd
}

// Model holds all dashboard state.
type Model struct {
	backend     Backend
	store       SessionStore
	server      string
	base        context.Context
	timeout     time.Duration
	log         *slog.Logger
	now         func() time.Time
	downloadDir string

	screen  screen
	session *auth.Session
	width   int
	height  int
	err     string
	status  string
	confirm *confirmation

	username textinput.Model
	password textinput.Model

	board       *records.Board
	table       table.Model
	filterField int
	filterInput textinput.Model
	filtering   bool

	intake intakeForm

	users    []auth.Identity
	userList list.Model
	newUser  newUserForm
	perms    permEditor

	editor formEditor

	template textarea.Model

	calc calcForm
}

// New constructs a dashboard model.
func New(opt Options) *Model {
	m := &Model{
		backend:     opt.Backend,
		store:       opt.Store,
		server:      opt.Server,
		base:        opt.Context,
		timeout:     opt.Timeout,
		log:         opt.Logger,
		now:         opt.Now,
		downloadDir: opt.DownloadDir,
		screen:      screenLogin,
		board:       records.NewBoard(),
		width:       100,
		height:      30,
	}
	if m.base == nil {
		m.base = context.Background()
	}
	if m.timeout <= 0 {
		m.timeout = 20 * time.Second
	}
	if m.log == nil {
		m.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m.log = m.log.With(slog.String("component", "dashboard"))
	if m.now == nil {
		m.now = time.Now
	}
	if m.downloadDir == "" {
		if wd, err := os.Getwd(); err == nil {
			m.downloadDir = wd
		}
	}

	m.username = textinput.New()
	m.username.Prompt = "Логин:  "
	m.username.Placeholder = "username"
	m.username.SetValue(opt.Username)
	m.password = textinput.New()
	m.password.Prompt = "Пароль: "
	m.password.EchoMode = textinput.EchoPassword
	if opt.Username == "" {
		m.username.Focus()
	} else {
		m.password.Focus()
	}

	m.table = newRecordsTable()
	m.filterInput = textinput.New()
	m.filterInput.Placeholder = "подстрока"

	m.userList = list.New(nil, list.NewDefaultDelegate(), m.width-4, m.height-10)
	m.userList.Title = "Пользователи"
	m.userList.SetShowHelp(false)
	m.userList.SetFilteringEnabled(false)
	m.userList.DisableQuitKeybindings()
	m.newUser = newNewUserForm()

	m.template = textarea.New()
	m.template.Placeholder = "Текст акта. Подстановки: {record_number}, {full_name}, {phone} ..."
	m.template.ShowLineNumbers = false

	m.calc = newCalcForm(calc.Passenger)

	m.board.SetSort(opt.Sort)
	if opt.Session != nil && !opt.Session.Expired(m.now()) {
		m.startSession(*opt.Session)
	}
	m.resize(m.width, m.height)
	m.syncTable()
	return m
}

// Init loads the records when a session was resumed.
func (m *Model) Init() tea.Cmd {
	if m.session != nil {
		return m.listCmd()
	}
	return textinput.Blink
}

func (m *Model) identity() *auth.Identity {
	if m.session == nil {
		return nil
	}
	return &m.session.Identity
}

func (m *Model) startSession(s auth.Session) {
	m.session = &s
	m.backend.SetToken(s.Token)
	m.password.SetValue("")
	m.password.Blur()
	m.username.Blur()
	m.screen = screenRecords
	m.err = ""
}

func (m *Model) logout() {
	m.session = nil
	m.backend.SetToken("")
	m.board = records.NewBoard()
	m.users = nil
	m.screen = screenLogin
	m.confirm = nil
	m.syncTable()
	m.password.Focus()
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.table.SetHeight(max(3, h-12))
	m.table.SetWidth(max(20, w-4))
	m.userList.SetSize(max(20, w-4), max(5, h-10))
	m.template.SetWidth(max(20, w-6))
	m.template.SetHeight(max(3, h-12))
}

// fail shows err in the footer. An expired token sends the user back to
// the login screen.
func (m *Model) fail(err error) {
	m.status = ""
	m.log.Error("request failed", "err", err)
	if errs.Is(err, errs.CodeUnauthorized) && m.session != nil {
		m.logout()
		m.err = "Сессия истекла, войдите снова"
		return
	}
	msg := errs.UserMessage(err)
	if typed := errs.As(err); typed != nil && len(typed.Details()) > 0 {
		details := typed.Details()
		keys := make([]string, 0, len(details))
		for k := range details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+details[k])
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	m.err = msg
}

func (m *Model) ok(status string) {
	m.err = ""
	m.status = status
}

func (m *Model) ask(prompt string, cmd tea.Cmd) {
	m.confirm = &confirmation{prompt: prompt, cmd: cmd}
}

// Update routes messages based on the current screen.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case errMsg:
		m.fail(msg.err)
		return m, nil
	case statusMsg:
		m.ok(string(msg))
		return m, nil
	case sessionMsg:
		m.startSession(msg.s)
		return m, m.listCmd()
	case recordsMsg:
		m.board.ApplyRecords(msg)
		m.syncTable()
		return m, nil
	case refreshFailedMsg:
		m.fail(msg.err)
		return m, nil
	case transitionMsg:
		return m, m.applyTransition(msg)
	case bulkDeletedMsg:
		if !m.board.ApplyBulkDelete(msg.err) {
			m.fail(msg.err)
			return m, nil
		}
		m.syncTable()
		m.ok(fmt.Sprintf("Удалено записей: %d", msg.n))
		return m, m.listCmd()
	case recordDeletedMsg:
		m.ok("Запись удалена")
		return m, m.listCmd()
	case recordCreatedMsg:
		m.screen = screenRecords
		m.ok(fmt.Sprintf("Запись №%d создана", msg.rec.Number))
		return m, m.listCmd()
	case usersMsg:
		m.setUsers(msg)
		return m, nil
	case userChangedMsg:
		m.screen = screenUsers
		m.ok(string(msg))
		return m, m.usersCmd()
	case formConfigMsg:
		if msg.intake {
			m.intake = newIntakeForm(msg.cfg)
			m.screen = screenIntake
			return m, m.intake.focus()
		}
		m.editor.load(msg.cfg)
		return m, nil
	case templateMsg:
		m.template.SetValue(string(msg))
		return m, nil
	case calcSettingsMsg:
		m.calc.setSettings(calc.Settings(msg))
		return m, nil
	case calcResultMsg:
		res := calc.Result(msg)
		m.calc.server = &res
		m.err = ""
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.confirm != nil {
			c := m.confirm
			m.confirm = nil
			switch msg.String() {
			case "y", "Y", "д", "Д", "enter":
				return m, c.cmd
			}
			m.status = "Отменено"
			return m, nil
		}
		if msg.String() == "ctrl+l" && m.session != nil {
			m.logout()
			m.ok("Вы вышли")
			return m, nil
		}
	}

	switch m.screen {
	case screenLogin:
		return m.updateLogin(msg)
	case screenRecords:
		return m.updateRecords(msg)
	case screenIntake:
		return m.updateIntake(msg)
	case screenUsers:
		return m.updateUsers(msg)
	case screenNewUser:
		return m.updateNewUser(msg)
	case screenEditUser:
		return m.updateEditUser(msg)
	case screenForms:
		return m.updateForms(msg)
	case screenTemplate:
		return m.updateTemplate(msg)
	case screenCalc:
		return m.updateCalc(msg)
	}
	return m, nil
}

// navigate switches tabs on a number key. It reports whether the key
// was consumed.
func (m *Model) navigate(k tea.KeyMsg) (tea.Cmd, bool) {
	for _, t := range tabs {
		if k.String() != t.key {
			continue
		}
		if t.need != "" && !auth.HasPermission(m.identity(), t.need) {
			m.err = "Недостаточно прав: " + string(t.need)
			return nil, true
		}
		m.err, m.status = "", ""
		m.screen = t.screen
		switch t.screen {
		case screenRecords:
			return m.listCmd(), true
		case screenUsers:
			return m.usersCmd(), true
		case screenForms:
			return m.formConfigCmd(false), true
		case screenTemplate:
			return tea.Batch(m.templateCmd(), m.template.Focus()), true
		case screenCalc:
			return m.calcSettingsCmd(m.calc.vehicle), true
		}
		return nil, true
	}
	return nil, false
}

func (m *Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			return m, tea.Quit
		case "tab", "shift+tab", "up", "down":
			if m.username.Focused() {
				m.username.Blur()
				return m, m.password.Focus()
			}
			m.password.Blur()
			return m, m.username.Focus()
		case "enter":
			user := strings.TrimSpace(m.username.Value())
			pw := m.password.Value()
			if user == "" || pw == "" {
				m.err = "Введите логин и пароль"
				return m, nil
			}
			m.password.SetValue("")
			m.err = ""
			m.status = "Вход..."
			return m, m.loginCmd(user, pw)
		}
	}
	var cmd tea.Cmd
	if m.username.Focused() {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

// View renders the current screen.
func (m *Model) View() string {
	var b strings.Builder
	head := titleStyle.Render("Шиномонтаж")
	if m.server != "" {
		head += mutedStyle.Render(" " + m.server)
	}
	if id := m.identity(); id != nil {
		head += hintStyle.Render(fmt.Sprintf("  %s (%s)", id.Username, id.Role))
	}
	b.WriteString(head + "\n")
	if m.session != nil {
		b.WriteString(m.renderTabs() + "\n")
	}
	b.WriteString("\n")

	switch m.screen {
	case screenLogin:
		b.WriteString(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			"Вход", "", m.username.View(), m.password.View())))
		b.WriteString("\n" + hintStyle.Render("enter=войти  tab=поле  esc=выход") + "\n")
	case screenRecords:
		b.WriteString(m.viewRecords())
	case screenIntake:
		b.WriteString(m.viewIntake())
	case screenUsers:
		b.WriteString(m.viewUsers())
	case screenNewUser:
		b.WriteString(m.viewNewUser())
	case screenEditUser:
		b.WriteString(m.viewEditUser())
	case screenForms:
		b.WriteString(m.viewForms())
	case screenTemplate:
		b.WriteString(m.template.View() + "\n")
		b.WriteString(hintStyle.Render("ctrl+s=сохранить  esc=назад") + "\n")
	case screenCalc:
		b.WriteString(m.viewCalc())
	}

	switch {
	case m.confirm != nil:
		b.WriteString("\n" + errStyle.Render(m.confirm.prompt+" [y/N]") + "\n")
	case m.err != "":
		b.WriteString("\n" + errStyle.Render("Ошибка: "+m.err) + "\n")
	case m.status != "":
		b.WriteString("\n" + okStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m *Model) renderTabs() string {
	var parts []string
	for _, t := range tabs {
		if t.need != "" && !auth.HasPermission(m.identity(), t.need) {
			continue
		}
		label := t.key + " " + t.title
		if m.onTab(t.screen) {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) onTab(s screen) bool {
	switch m.screen {
	case screenIntake:
		return s == screenRecords
	case screenNewUser, screenEditUser:
		return s == screenUsers
	}
	return m.screen == s
}

func (m *Model) updateTemplate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.template.Blur()
			m.screen = screenRecords
			return m, m.listCmd()
		case "ctrl+s":
			return m, m.saveTemplateCmd(m.template.Value())
		}
	}
	var cmd tea.Cmd
	m.template, cmd = m.template.Update(msg)
	return m, cmd
}
