package storeapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dimidiyP/shinomontaz-base/internal/auth"
	"github.com/dimidiyP/shinomontaz-base/internal/errs"
	"github.com/dimidiyP/shinomontaz-base/internal/forms"
	"github.com/dimidiyP/shinomontaz-base/internal/validate"
)

func (c *Client) ListUsers(ctx context.Context) ([]auth.Identity, error) {
	var resp struct {
		Users []auth.Identity `json:"users"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/users", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// NewUser is an account creation request.
type NewUser struct {
	Username    string            `json:"username" validate:"required"`
	Password    string            `json:"password" validate:"required"`
	Role        auth.Role         `json:"role" validate:"oneof=admin user"`
	Permissions []auth.Capability `json:"permissions"`
}

func (c *Client) CreateUser(ctx context.Context, u NewUser) error {
	if u.Role == "" {
		u.Role = auth.RoleUser
	}
	if u.Permissions == nil {
		u.Permissions = []auth.Capability{}
	}
	if err := validate.Struct(u); err != nil {
		return err
	}
	if err := validate.Username(u.Username); err != nil {
		return errs.Wrap(errs.CodeValidation, err, "invalid username")
	}
	if err := validate.Password(u.Password); err != nil {
		return errs.Wrap(errs.CodeValidation, err, err.Error())
	}
	return c.doJSON(ctx, http.MethodPost, "/api/users", nil, u, nil)
}

var errAdminLocked = errs.New(errs.CodeForbidden, "Cannot modify admin user")

func (c *Client) UpdatePermissions(ctx context.Context, username string, perms []auth.Capability) error {
	if username == auth.AdminUsername {
		return errAdminLocked
	}
	if perms == nil {
		perms = []auth.Capability{}
	}
	req := struct {
		Permissions []auth.Capability `json:"permissions"`
	}{perms}
	return c.doJSON(ctx, http.MethodPut, "/api/users/"+url.PathEscape(username), nil, req, nil)
}

func (c *Client) DeleteUser(ctx context.Context, username string) error {
	if username == auth.AdminUsername {
		return errAdminLocked
	}
	return c.doJSON(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(username), nil, nil, nil)
}

// FormConfig returns the intake-form layout.
func (c *Client) FormConfig(ctx context.Context) (forms.Config, error) {
	var cfg forms.Config
	if c.docs.get(keyFormConfig, &cfg) {
		return cfg, nil
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/form-config", nil, nil, &cfg); err != nil {
		return forms.Config{}, err
	}
	c.docs.put(keyFormConfig, cfg)
	return cfg, nil
}

func (c *Client) SaveFormConfig(ctx context.Context, cfg forms.Config) error {
	c.docs.forget(keyFormConfig)
	return c.doJSON(ctx, http.MethodPut, "/api/form-config", nil, cfg, nil)
}

type pdfTemplate struct {
	Template string `json:"template"`
}

// PDFTemplate returns the storage act text with {field} placeholders.
func (c *Client) PDFTemplate(ctx context.Context) (string, error) {
	var t pdfTemplate
	if c.docs.get(keyPDFTemplate, &t) {
		return t.Template, nil
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/pdf-template", nil, nil, &t); err != nil {
		return "", err
	}
	c.docs.put(keyPDFTemplate, t)
	return t.Template, nil
}

func (c *Client) SavePDFTemplate(ctx context.Context, template string) error {
	c.docs.forget(keyPDFTemplate)
	return c.doJSON(ctx, http.MethodPut, "/api/pdf-template", nil, pdfTemplate{Template: template}, nil)
}
