package handler

import (
	"math"
	"time"

	"github.com/fakhrymubarak/weather-dashboard/internal/model"
)

const (
	hourlyShown = 24
	dailyShown  = 5
	// unnamedLocation labels a device position that came without a name.
	unnamedLocation = "Your Location"
)

// DashboardView is the rendered dashboard. Temperatures are rounded and in the preferred unit.
type DashboardView struct {
	Location   string            `json:"location"`
	Coordinate model.Coordinate  `json:"coordinate"`
	Unit       model.Unit        `json:"unit"`
	UnitSymbol string            `json:"unitSymbol"`
	Favorite   bool              `json:"favorite"`
	Status     model.QueryStatus `json:"status"`
	Cached     bool              `json:"cached"`
	Current    *CurrentView      `json:"current,omitempty"`
	Hourly     []HourlyView      `json:"hourly,omitempty"`
	Daily      []DailyView       `json:"daily,omitempty"`
}

type CurrentView struct {
	Temperature   float64 `json:"temperature"`
	Humidity      int     `json:"humidity"`
	WindSpeed     float64 `json:"windSpeed"`
	UVIndex       float64 `json:"uvIndex"`
	Pressure      int     `json:"pressure"`
	ConditionCode string  `json:"conditionCode"`
	Description   string  `json:"description"`
}

type HourlyView struct {
	Time          time.Time `json:"time"`
	Temperature   float64   `json:"temperature"`
	ConditionCode string    `json:"conditionCode"`
}

type DailyView struct {
	Time          time.Time `json:"time"`
	TempMax       float64   `json:"tempMax"`
	TempMin       float64   `json:"tempMin"`
	ConditionCode string    `json:"conditionCode"`
}

// renderDashboard converts a settled query into its view. The snapshot is never modified.
func renderDashboard(loc model.ResolvedLocation, state model.QueryState, prefs model.Preferences) DashboardView {
	name := loc.Name(unnamedLocation)
	view := DashboardView{
		Location:   name,
		Coordinate: loc.Coordinate,
		Unit:       prefs.Unit,
		UnitSymbol: prefs.Unit.Symbol(),
		Favorite:   loc.DisplayName != nil && prefs.IsFavorite(name),
		Status:     state.Status,
		Cached:     state.Cached,
	}
	if state.Snapshot == nil {
		return view
	}

	temp := func(c float64) float64 {
		return math.Round(model.ConvertTemperature(c, prefs.Unit))
	}

	cur := state.Snapshot.Current
	view.Current = &CurrentView{
		Temperature:   temp(cur.Temperature),
		Humidity:      cur.Humidity,
		WindSpeed:     math.Round(cur.WindSpeed),
		UVIndex:       math.Round(cur.UVIndex),
		Pressure:      cur.Pressure,
		ConditionCode: cur.ConditionCode,
		Description:   cur.Description,
	}
	for i, h := range state.Snapshot.Hourly {
		if i == hourlyShown {
			break
		}
		view.Hourly = append(view.Hourly, HourlyView{Time: h.Time, Temperature: temp(h.Temperature), ConditionCode: h.ConditionCode})
	}
	for i, d := range state.Snapshot.Daily {
		if i == dailyShown {
			break
		}
		view.Daily = append(view.Daily, DailyView{Time: d.Time, TempMax: temp(d.TempMax), TempMin: temp(d.TempMin), ConditionCode: d.ConditionCode})
	}
	return view
}
