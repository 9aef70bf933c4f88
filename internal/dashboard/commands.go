package dashboard

import (
	"context"
	"fmt"
	"io"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dimidiyP/shinomontaz-base/internal/auth"
	"github.com/dimidiyP/shinomontaz-base/internal/calc"
	"github.com/dimidiyP/shinomontaz-base/internal/db"
	"github.com/dimidiyP/shinomontaz-base/internal/forms"
	"github.com/dimidiyP/shinomontaz-base/internal/fsutil"
	"github.com/dimidiyP/shinomontaz-base/internal/records"
	"github.com/dimidiyP/shinomontaz-base/internal/sheet"
	"github.com/dimidiyP/shinomontaz-base/internal/storeapi"
)

type errMsg struct{ err error }

// statusMsg reports a finished action in the footer.
type statusMsg string

type sessionMsg struct{ s auth.Session }

type recordsMsg []records.Record

type refreshFailedMsg struct{ err error }

type transitionMsg struct {
	id      string
	t       records.Transition
	updated *records.Record
	err     error
}

type bulkDeletedMsg struct {
	n   int
	err error
}

type recordDeletedMsg struct{ id string }

type recordCreatedMsg struct{ rec records.Record }

type usersMsg []auth.Identity

type userChangedMsg string

type formConfigMsg struct {
	cfg    forms.Config
	intake bool
}

type templateMsg string

type calcSettingsMsg calc.Settings

type calcResultMsg calc.Result

func (m *Model) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.base, m.timeout)
}

func (m *Model) loginCmd(username, password string) tea.Cmd {
	be, store, server := m.backend, m.store, m.server
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		s, err := be.Login(ctx, username, password)
		if err != nil {
			return errMsg{err}
		}
		if store != nil {
			if err := store.SaveSession(ctx, server, s); err != nil {
				m.log.Warn("save session", "err", err)
			}
			if err := store.SetPref(ctx, db.PrefLastUsername, username); err != nil {
				m.log.Warn("save pref", "err", err)
			}
		}
		return sessionMsg{s}
	}
}

// listCmd fetches the records. A failure leaves the board untouched.
func (m *Model) listCmd() tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		recs, err := be.ListRecords(ctx)
		if err != nil {
			return refreshFailedMsg{err}
		}
		return recordsMsg(recs)
	}
}

func (m *Model) transitionCmd(id string, t records.Transition) tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		updated, err := be.Transition(ctx, id, t)
		return transitionMsg{id: id, t: t, updated: updated, err: err}
	}
}

func (m *Model) bulkDeleteCmd(ids []string) tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		n, err := be.BulkDelete(ctx, ids)
		return bulkDeletedMsg{n: n, err: err}
	}
}

func (m *Model) deleteRecordCmd(id string) tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		if err := be.DeleteRecord(ctx, id); err != nil {
			return errMsg{err}
		}
		return recordDeletedMsg{id}
	}
}

func (m *Model) createRecordCmd(values map[string]string) tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		rec, err := be.CreateRecord(ctx, values)
		if err != nil {
			return errMsg{err}
		}
		return recordCreatedMsg{rec}
	}
}

func (m *Model) pdfCmd(r records.Record) tea.Cmd {
	be, dir := m.backend, m.downloadDir
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		name := "act_" + strconv.FormatInt(r.Number, 10) + ".pdf"
		path, err := fsutil.WriteFile(dir, name, func(f io.Writer) error {
			_, err := be.RecordPDF(ctx, r.ID, f)
			return err
		})
		if err != nil {
			return errMsg{err}
		}
		return statusMsg("Акт сохранён: " + path)
	}
}

// exportCmd writes the rows as they are shown, in display order.
func (m *Model) exportCmd(recs []records.Record) tea.Cmd {
	dir, now := m.downloadDir, m.now()
	return func() tea.Msg {
		name := "records_" + now.Format("20060102_150405") + ".xlsx"
		path, err := fsutil.WriteFile(dir, name, func(f io.Writer) error {
			return sheet.WriteView(f, recs, nil)
		})
		if err != nil {
			return errMsg{err}
		}
		return statusMsg(fmt.Sprintf("Выгружено %d записей: %s", len(recs), path))
	}
}

func (m *Model) usersCmd() tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		users, err := be.ListUsers(ctx)
		if err != nil {
			return errMsg{err}
		}
		return usersMsg(users)
	}
}

func (m *Model) createUserCmd(u storeapi.NewUser) tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		if err := be.CreateUser(ctx, u); err != nil {
			return errMsg{err}
		}
		return userChangedMsg("Пользователь создан: " + u.Username)
	}
}

func (m *Model) updatePermissionsCmd(username string, perms []auth.Capability) tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		if err := be.UpdatePermissions(ctx, username, perms); err != nil {
			return errMsg{err}
		}
		return userChangedMsg("Права обновлены: " + username)
	}
}

func (m *Model) deleteUserCmd(username string) tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		if err := be.DeleteUser(ctx, username); err != nil {
			return errMsg{err}
		}
		return userChangedMsg("Пользователь удалён: " + username)
	}
}

func (m *Model) formConfigCmd(intake bool) tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		cfg, err := be.FormConfig(ctx)
		if err != nil {
			return errMsg{err}
		}
		return formConfigMsg{cfg: cfg, intake: intake}
	}
}

func (m *Model) saveFormConfigCmd(cfg forms.Config) tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		if err := be.SaveFormConfig(ctx, cfg); err != nil {
			return errMsg{err}
		}
		return statusMsg("Конфигурация формы сохранена")
	}
}

func (m *Model) templateCmd() tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		tpl, err := be.PDFTemplate(ctx)
		if err != nil {
			return errMsg{err}
		}
		return templateMsg(tpl)
	}
}

func (m *Model) saveTemplateCmd(tpl string) tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		if err := be.SavePDFTemplate(ctx, tpl); err != nil {
			return errMsg{err}
		}
		return statusMsg("Шаблон акта сохранён")
	}
}

func (m *Model) calcSettingsCmd(v calc.VehicleType) tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		s, err := be.CalculatorSettings(ctx, v)
		if err != nil {
			return errMsg{err}
		}
		return calcSettingsMsg(s)
	}
}

func (m *Model) calculateCmd(req calc.Request) tea.Cmd {
	be := m.backend
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		res, err := be.Calculate(ctx, req)
		if err != nil {
			return errMsg{err}
		}
		return calcResultMsg(res)
	}
}

func (m *Model) saveSortCmd(spec records.SortSpec) tea.Cmd {
	store := m.store
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		if err := store.SetPref(ctx, db.PrefRecordsSort, spec.String()); err != nil {
			m.log.Warn("save sort", "err", err)
		}
		return nil
	}
}
