package dashboard

import (
	"context"
	"io"

	"github.com/dimidiyP/shinomontaz-base/internal/auth"
	"github.com/dimidiyP/shinomontaz-base/internal/calc"
	"github.com/dimidiyP/shinomontaz-base/internal/forms"
	"github.com/dimidiyP/shinomontaz-base/internal/records"
	"github.com/dimidiyP/shinomontaz-base/internal/storeapi"
)

// Backend is the part of the REST client the dashboard drives.
// *storeapi.Client implements it.
type Backend interface {
	records.Service

	Login(ctx context.Context, username, password string) (auth.Session, error)
	SetToken(token string)

	CreateRecord(ctx context.Context, values map[string]string) (records.Record, error)
	DeleteRecord(ctx context.Context, id string) error
	RecordPDF(ctx context.Context, id string, w io.Writer) (int64, error)

	ListUsers(ctx context.Context) ([]auth.Identity, error)
	CreateUser(ctx context.Context, u storeapi.NewUser) error
	UpdatePermissions(ctx context.Context, username string, perms []auth.Capability) error
	DeleteUser(ctx context.Context, username string) error

	FormConfig(ctx context.Context) (forms.Config, error)
	SaveFormConfig(ctx context.Context, cfg forms.Config) error
	PDFTemplate(ctx context.Context) (string, error)
	SavePDFTemplate(ctx context.Context, template string) error

	CalculatorSettings(ctx context.Context, vehicle calc.VehicleType) (calc.Settings, error)
	Calculate(ctx context.Context, req calc.Request) (calc.Result, error)
}

var _ Backend = (*storeapi.Client)(nil)

// SessionStore persists the login and small UI preferences between
// runs. *db.DB implements it.
type SessionStore interface {
	SaveSession(ctx context.Context, server string, s auth.Session) error
	SetPref(ctx context.Context, key, value string) error
}
