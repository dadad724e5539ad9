package repository

import (
	"encoding/json"
	"net/http"
)

// RoundTripperFunc allows us to easily mock http.Client responses in tests.
type RoundTripperFunc func(*http.Request) *http.Response

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

// OneCallFixture renders a /onecall body with the given number of hourly and daily points.
// withCurrentWeather=false drops current.weather to simulate a truncated payload.
func OneCallFixture(temp float64, hourly, daily int, withCurrentWeather bool) []byte {
	const start = 1700000000
	cond := []map[string]interface{}{{"id": 800, "main": "Clear", "description": "clear sky", "icon": "01d"}}

	current := map[string]interface{}{
		"dt":         start,
		"temp":       temp,
		"pressure":   1013,
		"humidity":   60,
		"uvi":        3.5,
		"wind_speed": 4.1,
	}
	if withCurrentWeather {
		current["weather"] = cond
	}

	hours := make([]map[string]interface{}, 0, hourly)
	for i := 0; i < hourly; i++ {
		hours = append(hours, map[string]interface{}{"dt": start + i*3600, "temp": temp + float64(i%5), "weather": cond})
	}
	days := make([]map[string]interface{}, 0, daily)
	for i := 0; i < daily; i++ {
		days = append(days, map[string]interface{}{
			"dt":      start + i*86400,
			"temp":    map[string]float64{"min": temp - 5, "max": temp + 5},
			"weather": cond,
		})
	}

	b, _ := json.Marshal(map[string]interface{}{
		"lat":     7.08731,
		"lon":     80.014366,
		"current": current,
		"hourly":  hours,
		"daily":   days,
	})
	return b
}
