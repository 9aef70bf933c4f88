package storeapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dimidiyP/shinomontaz-base/internal/calc"
)

const calcPath = "/api/calculator"

func (c *Client) CalculatorSettings(ctx context.Context, vehicle calc.VehicleType) (calc.Settings, error) {
	key := keyCalcSettings(string(vehicle))
	var s calc.Settings
	if c.docs.get(key, &s) {
		return s, nil
	}
	if err := c.doJSON(ctx, http.MethodGet, calcPath+"/settings/"+url.PathEscape(string(vehicle)), nil, nil, &s); err != nil {
		return calc.Settings{}, err
	}
	c.docs.put(key, s)
	return s, nil
}

func (c *Client) SaveCalculatorSettings(ctx context.Context, s calc.Settings) error {
	c.docs.forget(keyCalcSettings(string(s.VehicleType)))
	return c.doJSON(ctx, http.MethodPut, calcPath+"/settings/"+url.PathEscape(string(s.VehicleType)), nil, s, nil)
}

// Calculate prices a request on the server.
func (c *Client) Calculate(ctx context.Context, req calc.Request) (calc.Result, error) {
	var res calc.Result
	if err := c.doJSON(ctx, http.MethodPost, calcPath+"/calculate", nil, req, &res); err != nil {
		return calc.Result{}, err
	}
	return res, nil
}

// SaveCalculation prices and stores a request under a shareable id.
func (c *Client) SaveCalculation(ctx context.Context, req calc.Request) (calc.SavedResult, error) {
	var res calc.SavedResult
	if err := c.doJSON(ctx, http.MethodPost, calcPath+"/save-result", nil, req, &res); err != nil {
		return calc.SavedResult{}, err
	}
	return res, nil
}

func (c *Client) CalculationResult(ctx context.Context, id string) (calc.SavedResult, error) {
	id, err := calc.ParseResultID(id)
	if err != nil {
		return calc.SavedResult{}, err
	}
	var res calc.SavedResult
	if err := c.doJSON(ctx, http.MethodGet, calcPath+"/result/"+id, nil, nil, &res); err != nil {
		return calc.SavedResult{}, err
	}
	return res, nil
}
