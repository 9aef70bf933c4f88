package storeapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/dimidiyP/shinomontaz-base/internal/auth"
	"github.com/dimidiyP/shinomontaz-base/internal/errs"
	"github.com/dimidiyP/shinomontaz-base/internal/records"
)

const recordsPath = "/api/storage-records"

var _ records.Service = (*Client)(nil)

// Login exchanges credentials for a session and starts using its token.
func (c *Client) Login(ctx context.Context, username, password string) (auth.Session, error) {
	req := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{username, password}
	var resp struct {
		AccessToken string        `json:"access_token"`
		TokenType   string        `json:"token_type"`
		User        auth.Identity `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/login", nil, req, &resp); err != nil {
		return auth.Session{}, err
	}
	if resp.AccessToken == "" {
		return auth.Session{}, errs.New(errs.CodeInternal, "login response has no token")
	}
	s := auth.Session{Token: resp.AccessToken, Identity: resp.User}
	if exp, err := auth.TokenExpiry(resp.AccessToken); err == nil {
		s.ExpiresAt = exp
	} else {
		c.log.Debug("token expiry unreadable", "err", err)
	}
	c.SetToken(resp.AccessToken)
	return s, nil
}

type recordsResponse struct {
	Records []records.Record `json:"records"`
}

func (c *Client) ListRecords(ctx context.Context) ([]records.Record, error) {
	var resp recordsResponse
	if err := c.doJSON(ctx, http.MethodGet, recordsPath, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// SearchType selects the attribute a server-side search matches.
type SearchType string

const (
	SearchByNumber SearchType = "record_number"
	SearchByName   SearchType = "full_name"
	SearchByPhone  SearchType = "phone"
)

// ParseSearchType rejects unknown search types.
func ParseSearchType(s string) (SearchType, error) {
	switch t := SearchType(s); t {
	case SearchByNumber, SearchByName, SearchByPhone:
		return t, nil
	}
	return "", fmt.Errorf("unknown search type %q", s)
}

// SearchRecords finds records that are in storage, for the release desk.
func (c *Client) SearchRecords(ctx context.Context, query string, by SearchType) ([]records.Record, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("search_type", string(by))
	var resp recordsResponse
	if err := c.doJSON(ctx, http.MethodGet, recordsPath+"/search", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// CreateRecord submits the intake form. values is keyed by field name.
func (c *Client) CreateRecord(ctx context.Context, values map[string]string) (records.Record, error) {
	var resp struct {
		Message string          `json:"message"`
		Record  *records.Record `json:"record"`
	}
	if err := c.doJSON(ctx, http.MethodPost, recordsPath, nil, values, &resp); err != nil {
		return records.Record{}, err
	}
	if resp.Record == nil {
		return records.Record{}, errs.New(errs.CodeInternal, "create response has no record")
	}
	return *resp.Record, nil
}

func recordPath(id string, suffix string) string {
	return recordsPath + "/" + url.PathEscape(id) + suffix
}

// Transition asks the backend to move a record along its lifecycle. The
// backend may or may not echo the updated record.
func (c *Client) Transition(ctx context.Context, id string, t records.Transition) (*records.Record, error) {
	var suffix string
	switch t {
	case records.TransitionTakeToStorage:
		suffix = "/take-storage"
	case records.TransitionRelease:
		suffix = "/release"
	default:
		return nil, fmt.Errorf("unknown transition %q", t)
	}
	var resp struct {
		Message string          `json:"message"`
		Record  *records.Record `json:"record"`
	}
	if err := c.doJSON(ctx, http.MethodPut, recordPath(id, suffix), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Record, nil
}

func (c *Client) TakeToStorage(ctx context.Context, id string) (*records.Record, error) {
	return c.Transition(ctx, id, records.TransitionTakeToStorage)
}

func (c *Client) Release(ctx context.Context, id string) (*records.Record, error) {
	return c.Transition(ctx, id, records.TransitionRelease)
}

func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, recordPath(id, ""), nil, nil, nil)
}

// BulkDelete removes records by id and returns how many the backend
// actually deleted, which can be fewer than requested.
func (c *Client) BulkDelete(ctx context.Context, ids []string) (int, error) {
	if ids == nil {
		ids = []string{}
	}
	var resp struct {
		DeletedCount int `json:"deleted_count"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, recordsPath+"/bulk", nil, ids, &resp); err != nil {
		return 0, err
	}
	return resp.DeletedCount, nil
}

// RecordPDF streams the storage act of one record to w.
func (c *Client) RecordPDF(ctx context.Context, id string, w io.Writer) (int64, error) {
	return c.download(ctx, recordPath(id, "/pdf"), w)
}

// ExportExcel streams the server-generated spreadsheet of all records.
func (c *Client) ExportExcel(ctx context.Context, w io.Writer) (int64, error) {
	return c.download(ctx, recordsPath+"/export/excel", w)
}

// ImportExcel uploads a spreadsheet of records and returns the backend's
// summary message.
func (c *Client) ImportExcel(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, recordsPath+"/import/excel", nil, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("content-type", mw.FormDataContentType())
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var msg messageResponse
	if err := decodeJSON(resp.Body, &msg); err != nil {
		return "", err
	}
	return msg.Message, nil
}
