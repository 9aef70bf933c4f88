// Package calc holds the tire-service cost calculator model and a local
// estimate that matches the server's arithmetic.
package calc

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dimidiyP/shinomontaz-base/internal/validate"
)

// VehicleType selects a settings document.
type VehicleType string

const (
	Passenger VehicleType = "passenger"
	Truck     VehicleType = "truck"
)

// VehicleTypes lists the supported settings documents.
var VehicleTypes = []VehicleType{Passenger, Truck}

// ParseVehicleType rejects unknown vehicle types.
func ParseVehicleType(s string) (VehicleType, error) {
	v := VehicleType(s)
	if !slices.Contains(VehicleTypes, v) {
		return "", fmt.Errorf("unknown vehicle type %q", s)
	}
	return v, nil
}

// Service is a billable operation priced in minutes per wheel.
type Service struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	TimeBySize map[string]int `json:"time_by_size"`
	Enabled    bool           `json:"enabled"`
}

// Option scales the total time.
type Option struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	TimeMultiplier float64 `json:"time_multiplier"`
}

// Settings is the price list for one vehicle type.
type Settings struct {
	VehicleType       VehicleType `json:"vehicle_type"`
	HourlyRate        float64     `json:"hourly_rate"`
	Services          []Service   `json:"services"`
	AdditionalOptions []Option    `json:"additional_options"`
}

// Sizes returns every tire size any service is priced for, sorted.
func (s Settings) Sizes() []string {
	var out []string
	for _, svc := range s.Services {
		for size := range svc.TimeBySize {
			if !slices.Contains(out, size) {
				out = append(out, size)
			}
		}
	}
	slices.Sort(out)
	return out
}

func (s Settings) service(id string) (Service, bool) {
	i := slices.IndexFunc(s.Services, func(v Service) bool { return v.ID == id })
	if i < 0 {
		return Service{}, false
	}
	return s.Services[i], true
}

func (s Settings) option(id string) (Option, bool) {
	i := slices.IndexFunc(s.AdditionalOptions, func(o Option) bool { return o.ID == id })
	if i < 0 {
		return Option{}, false
	}
	return s.AdditionalOptions[i], true
}

// Request is what the customer picked.
type Request struct {
	VehicleType       VehicleType `json:"vehicle_type" validate:"required,oneof=passenger truck"`
	TireSize          string      `json:"tire_size" validate:"required"`
	WheelCount        int         `json:"wheel_count" validate:"min=1,max=12"`
	SelectedServices  []string    `json:"selected_services" validate:"min=1"`
	AdditionalOptions []string    `json:"additional_options"`
}

// Breakdown explains how the total time was reached.
type Breakdown struct {
	BaseTime   int     `json:"base_time"`
	Multiplier float64 `json:"multiplier"`
}

// Result is a priced request. Times are minutes, cost is whole rubles.
type Result struct {
	VehicleType       VehicleType `json:"vehicle_type"`
	TireSize          string      `json:"tire_size"`
	WheelCount        int         `json:"wheel_count"`
	SelectedServices  []string    `json:"selected_services"`
	AdditionalOptions []string    `json:"additional_options"`
	TotalTime         int         `json:"total_time"`
	TotalCost         int         `json:"total_cost"`
	Breakdown         Breakdown   `json:"breakdown"`
}

// SavedResult is a calculation stored on the server under a shareable id.
type SavedResult struct {
	UniqueID    string `json:"unique_id"`
	Calculation Result `json:"calculation"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// Estimate prices req against s.
//
// Base time is the per-wheel minutes of every selected service for the
// tire size times the wheel count. The multiplier is the product of the
// selected option multipliers. Both totals are truncated toward zero. The
// cost divides the minutes by 60 before applying the rate, in float64, so
// it lands on the same ruble as the server, e.g. 11 min at 1200/h is 219.
func Estimate(s Settings, req Request) (Result, error) {
	if err := validate.Struct(req); err != nil {
		return Result{}, err
	}
	if s.VehicleType != "" && s.VehicleType != req.VehicleType {
		return Result{}, fmt.Errorf("settings are for %s, request is for %s", s.VehicleType, req.VehicleType)
	}

	perWheel := 0
	for _, id := range req.SelectedServices {
		svc, ok := s.service(id)
		if !ok || !svc.Enabled {
			return Result{}, fmt.Errorf("service %q is not available", id)
		}
		minutes, ok := svc.TimeBySize[req.TireSize]
		if !ok {
			return Result{}, fmt.Errorf("service %q has no price for size %s", id, req.TireSize)
		}
		perWheel += minutes
	}
	base := perWheel * req.WheelCount

	mult := decimal.NewFromInt(1)
	for _, id := range req.AdditionalOptions {
		opt, ok := s.option(id)
		if !ok {
			return Result{}, fmt.Errorf("option %q is not available", id)
		}
		mult = mult.Mul(decimal.NewFromFloat(opt.TimeMultiplier))
	}

	total := decimal.NewFromInt(int64(base)).Mul(mult).Floor()
	minutes := int(total.IntPart())
	cost := int(float64(minutes) / 60 * s.HourlyRate)
	m, _ := mult.Float64()

	return Result{
		VehicleType:       req.VehicleType,
		TireSize:          req.TireSize,
		WheelCount:        req.WheelCount,
		SelectedServices:  slices.Clone(req.SelectedServices),
		AdditionalOptions: slices.Clone(req.AdditionalOptions),
		TotalTime:         minutes,
		TotalCost:         cost,
		Breakdown:         Breakdown{BaseTime: base, Multiplier: m},
	}, nil
}

// ParseResultID checks that id looks like a saved calculation id.
func ParseResultID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("invalid calculation id %q", id)
	}
	return u.String(), nil
}
