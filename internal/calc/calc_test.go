package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passenger() Settings {
	return Settings{
		VehicleType: Passenger,
		HourlyRate:  2000,
		Services: []Service{
			{ID: "mount_demount", Name: "Снятие/установка", TimeBySize: map[string]int{"R15": 15, "R16": 20, "R17": 25}, Enabled: true},
			{ID: "balancing", Name: "Балансировка", TimeBySize: map[string]int{"R15": 10, "R16": 10, "R17": 15}, Enabled: true},
			{ID: "valve", Name: "Вентиль", TimeBySize: map[string]int{"R16": 5}, Enabled: false},
		},
		AdditionalOptions: []Option{
			{ID: "low_profile", Name: "Низкий профиль", TimeMultiplier: 1.2},
			{ID: "runflat", Name: "RunFlat", TimeMultiplier: 1.5},
		},
	}
}

func truck() Settings {
	return Settings{
		VehicleType: Truck,
		HourlyRate:  3000,
		Services: []Service{
			{ID: "mount_demount", Name: "Шиномонтаж", TimeBySize: map[string]int{"R22.5": 60}, Enabled: true},
		},
		AdditionalOptions: []Option{{ID: "heavy_duty", Name: "Тяжёлые условия", TimeMultiplier: 1.3}},
	}
}

func TestEstimatePassengerR16(t *testing.T) {
	got, err := Estimate(passenger(), Request{
		VehicleType:      Passenger,
		TireSize:         "R16",
		WheelCount:       4,
		SelectedServices: []string{"mount_demount", "balancing"},
	})
	require.NoError(t, err)
	assert.Equal(t, 120, got.TotalTime)
	assert.Equal(t, 4000, got.TotalCost)
	assert.Equal(t, Breakdown{BaseTime: 120, Multiplier: 1}, got.Breakdown)
}

func TestEstimateTruckHeavyDuty(t *testing.T) {
	got, err := Estimate(truck(), Request{
		VehicleType:       Truck,
		TireSize:          "R22.5",
		WheelCount:        2,
		SelectedServices:  []string{"mount_demount"},
		AdditionalOptions: []string{"heavy_duty"},
	})
	require.NoError(t, err)
	assert.Equal(t, 120, got.Breakdown.BaseTime)
	assert.Equal(t, 1.3, got.Breakdown.Multiplier)
	assert.Equal(t, 156, got.TotalTime)
	assert.Equal(t, 7800, got.TotalCost)
}

func TestEstimateMultipliersCompoundAndTruncate(t *testing.T) {
	s := passenger()
	s.HourlyRate = 1500
	got, err := Estimate(s, Request{
		VehicleType:       Passenger,
		TireSize:          "R17",
		WheelCount:        3,
		SelectedServices:  []string{"mount_demount", "balancing"},
		AdditionalOptions: []string{"low_profile", "runflat"},
	})
	require.NoError(t, err)
	// 3 * 40 = 120; 120 * 1.8 = 216; 216 * 1500 / 60 = 5400
	assert.Equal(t, 216, got.TotalTime)
	assert.Equal(t, 5400, got.TotalCost)

	got, err = Estimate(s, Request{
		VehicleType:      Passenger,
		TireSize:         "R15",
		WheelCount:       5,
		SelectedServices: []string{"mount_demount", "balancing"},
	})
	require.NoError(t, err)
	// 125 min at 1500/h is exactly 3125
	assert.Equal(t, 125, got.TotalTime)
	assert.Equal(t, 3125, got.TotalCost)
}

func TestEstimateCostMatchesServerRounding(t *testing.T) {
	cases := []struct {
		minutes int
		rate    float64
		want    int
	}{
		{11, 1200, 219},
		{69, 1500, 1724},
		{65, 1800, 1949},
		{60, 1200, 1200},
	}
	for _, tc := range cases {
		s := Settings{
			HourlyRate: tc.rate,
			Services:   []Service{{ID: "repair", Name: "Ремонт", TimeBySize: map[string]int{"R16": tc.minutes}, Enabled: true}},
		}
		got, err := Estimate(s, Request{VehicleType: Passenger, TireSize: "R16", WheelCount: 1, SelectedServices: []string{"repair"}})
		require.NoError(t, err)
		assert.Equal(t, tc.minutes, got.TotalTime)
		assert.Equal(t, tc.want, got.TotalCost, "%d min at %.0f/h", tc.minutes, tc.rate)
	}
}

func TestEstimateRejectsUnknownInputs(t *testing.T) {
	base := Request{VehicleType: Passenger, TireSize: "R16", WheelCount: 4, SelectedServices: []string{"mount_demount"}}

	r := base
	r.SelectedServices = []string{"valve"}
	_, err := Estimate(passenger(), r)
	assert.ErrorContains(t, err, "not available")

	r = base
	r.TireSize = "R21"
	_, err = Estimate(passenger(), r)
	assert.ErrorContains(t, err, "no price")

	r = base
	r.AdditionalOptions = []string{"studs"}
	_, err = Estimate(passenger(), r)
	assert.Error(t, err)

	r = base
	r.WheelCount = 0
	_, err = Estimate(passenger(), r)
	assert.Error(t, err)

	_, err = Estimate(truck(), base)
	assert.ErrorContains(t, err, "settings are for truck")
}

func TestSizes(t *testing.T) {
	assert.Equal(t, []string{"R15", "R16", "R17"}, passenger().Sizes())
}

func TestParseResultID(t *testing.T) {
	id, err := ParseResultID("3F2504E0-4F89-11D3-9A0C-0305E82C3301")
	require.NoError(t, err)
	assert.Equal(t, "3f2504e0-4f89-11d3-9a0c-0305e82c3301", id)
	_, err = ParseResultID("../etc")
	assert.Error(t, err)
}

func TestParseVehicleType(t *testing.T) {
	v, err := ParseVehicleType("truck")
	require.NoError(t, err)
	assert.Equal(t, Truck, v)
	_, err = ParseVehicleType("bike")
	assert.Error(t, err)
}
