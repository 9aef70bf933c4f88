package dashboard

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dimidiyP/shinomontaz-base/internal/auth"
	"github.com/dimidiyP/shinomontaz-base/internal/storeapi"
)

type userItem auth.Identity

func (u userItem) Title() string { return u.Username }
func (u userItem) Description() string {
	perms := make([]string, 0, len(u.Permissions))
	for _, p := range u.Permissions {
		perms = append(perms, string(p))
	}
	return fmt.Sprintf("role=%s permissions=%s", u.Role, strings.Join(perms, ","))
}
func (u userItem) FilterValue() string { return u.Username }

// permEditor toggles capabilities with a cursor.
type permEditor struct {
	username string
	perms    []auth.Capability
	cursor   int
}

func (p *permEditor) update(k tea.KeyMsg) bool {
	caps := auth.AllCapabilities()
	switch k.String() {
	case "up", "k":
		p.cursor = (p.cursor - 1 + len(caps)) % len(caps)
	case "down", "j":
		p.cursor = (p.cursor + 1) % len(caps)
	case " ":
		c := caps[p.cursor]
		p.perms = auth.WithPermission(p.perms, c, !slices.Contains(p.perms, c))
	default:
		return false
	}
	return true
}

func (p permEditor) view(active bool) string {
	var b strings.Builder
	for i, c := range auth.AllCapabilities() {
		mark := "[ ]"
		if slices.Contains(p.perms, c) {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, c)
		if active && i == p.cursor {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

type newUserForm struct {
	username textinput.Model
	password textinput.Model
	perms    permEditor
	// focus: 0 username, 1 password, 2 permissions
	focus int
}

func newNewUserForm() newUserForm {
	f := newUserForm{}
	f.username = textinput.New()
	f.username.Prompt = "Логин:  "
	f.password = textinput.New()
	f.password.Prompt = "Пароль: "
	f.password.EchoMode = textinput.EchoPassword
	return f
}

func (f *newUserForm) reset() tea.Cmd {
	f.username.SetValue("")
	f.password.SetValue("")
	f.perms = permEditor{perms: []auth.Capability{auth.CapView}}
	f.focus = 0
	f.password.Blur()
	return f.username.Focus()
}

func (f *newUserForm) cycle() tea.Cmd {
	f.focus = (f.focus + 1) % 3
	f.username.Blur()
	f.password.Blur()
	switch f.focus {
	case 0:
		return f.username.Focus()
	case 1:
		return f.password.Focus()
	}
	return nil
}

func (m *Model) setUsers(users []auth.Identity) {
	m.users = users
	items := make([]list.Item, 0, len(users))
	for _, u := range users {
		items = append(items, userItem(u))
	}
	m.userList.SetItems(items)
	m.err = ""
}

func (m *Model) selectedUser() (auth.Identity, bool) {
	it, ok := m.userList.SelectedItem().(userItem)
	if !ok {
		return auth.Identity{}, false
	}
	return auth.Identity(it), true
}

func (m *Model) updateUsers(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		if cmd, ok := m.navigate(k); ok {
			return m, cmd
		}
		switch k.String() {
		case "esc", "q":
			m.screen = screenRecords
			return m, m.listCmd()
		case "R":
			return m, m.usersCmd()
		case "n":
			m.screen = screenNewUser
			m.err = ""
			return m, m.newUser.reset()
		case "e":
			u, ok := m.selectedUser()
			if !ok {
				return m, nil
			}
			if u.Username == auth.AdminUsername {
				m.err = "Нельзя изменить пользователя admin"
				return m, nil
			}
			m.perms = permEditor{username: u.Username, perms: slices.Clone(u.Permissions)}
			m.screen = screenEditUser
			m.err = ""
			return m, nil
		case "d":
			u, ok := m.selectedUser()
			if !ok {
				return m, nil
			}
			if u.Username == auth.AdminUsername {
				m.err = "Нельзя удалить пользователя admin"
				return m, nil
			}
			m.ask("Удалить пользователя "+u.Username+"?", m.deleteUserCmd(u.Username))
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.userList, cmd = m.userList.Update(msg)
	return m, cmd
}

func (m *Model) updateNewUser(msg tea.Msg) (tea.Model, tea.Cmd) {
	f := &m.newUser
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.screen = screenUsers
			return m, nil
		case "tab":
			return m, f.cycle()
		case "enter":
			u := storeapi.NewUser{
				Username:    strings.TrimSpace(f.username.Value()),
				Password:    f.password.Value(),
				Role:        auth.RoleUser,
				Permissions: f.perms.perms,
			}
			return m, m.createUserCmd(u)
		}
		if f.focus == 2 && f.perms.update(k) {
			return m, nil
		}
	}
	var cmd tea.Cmd
	switch f.focus {
	case 0:
		f.username, cmd = f.username.Update(msg)
	case 1:
		f.password, cmd = f.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) updateEditUser(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.screen = screenUsers
			return m, nil
		case "enter":
			return m, m.updatePermissionsCmd(m.perms.username, m.perms.perms)
		}
		m.perms.update(k)
	}
	return m, nil
}

func (m *Model) viewUsers() string {
	return m.userList.View() + "\n" +
		hintStyle.Render("n=новый  e=права  d=удалить  R=обновить  esc=назад") + "\n"
}

func (m *Model) viewNewUser() string {
	f := m.newUser
	var b strings.Builder
	b.WriteString(titleStyle.Render("Новый пользователь") + "\n\n")
	b.WriteString(f.username.View() + "\n")
	b.WriteString(f.password.View() + "\n\nПрава:\n")
	b.WriteString(f.perms.view(f.focus == 2))
	b.WriteString("\n" + hintStyle.Render("tab=поле  space=переключить право  enter=создать  esc=назад") + "\n")
	return b.String()
}

func (m *Model) viewEditUser() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Права пользователя "+m.perms.username) + "\n\n")
	b.WriteString(m.perms.view(true))
	b.WriteString("\n" + hintStyle.Render("↑/↓=выбор  space=переключить  enter=сохранить  esc=назад") + "\n")
	return b.String()
}
