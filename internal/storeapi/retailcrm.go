package storeapi

import (
	"context"
	"fmt"
	"net/http"
)

// CRMStatus describes the backend's order synchronization job.
type CRMStatus struct {
	SchedulerRunning bool   `json:"scheduler_running"`
	APIURL           string `json:"api_url"`
	LastSyncOrders   int    `json:"last_sync_orders"`
}

// CRMOrder is an order imported from the CRM. Its shape belongs to the
// CRM, so it is kept as decoded JSON.
type CRMOrder map[string]any

// String returns the named attribute formatted for display.
func (o CRMOrder) String(key string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return ""
	}
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(v)
}

func (c *Client) RetailCRMStatus(ctx context.Context) (CRMStatus, error) {
	var s CRMStatus
	if err := c.doJSON(ctx, http.MethodGet, "/api/retailcrm/status", nil, nil, &s); err != nil {
		return CRMStatus{}, err
	}
	return s, nil
}

// RetailCRMSync triggers a synchronization and returns the backend's
// message.
func (c *Client) RetailCRMSync(ctx context.Context) (string, error) {
	var resp messageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/retailcrm/sync", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) RetailCRMOrders(ctx context.Context) ([]CRMOrder, error) {
	var resp struct {
		Orders []CRMOrder `json:"orders"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/retailcrm/orders", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}
