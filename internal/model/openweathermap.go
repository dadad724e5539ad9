package model

// OneCallResponse mirrors the /onecall payload. Pointers mark fields that must be present.
type OneCallResponse struct {
	Lat     float64         `json:"lat"`
	Lon     float64         `json:"lon"`
	Current *OneCallCurrent `json:"current"`
	Hourly  []OneCallHourly `json:"hourly"`
	Daily   []OneCallDaily  `json:"daily"`
}

type OneCallCurrent struct {
	Dt        int64                `json:"dt"`
	Temp      *float64             `json:"temp"`
	Pressure  int                  `json:"pressure"`
	Humidity  int                  `json:"humidity"`
	UVI       float64              `json:"uvi"`
	WindSpeed float64              `json:"wind_speed"`
	Weather   []OpenWeatherMapCond `json:"weather"`
}

type OneCallHourly struct {
	Dt      int64                `json:"dt"`
	Temp    float64              `json:"temp"`
	Weather []OpenWeatherMapCond `json:"weather"`
}

type OneCallDaily struct {
	Dt   int64 `json:"dt"`
	Temp struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"temp"`
	Weather []OpenWeatherMapCond `json:"weather"`
}

type OpenWeatherMapCond struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// OpenWeatherMapResponse is the /weather?q= payload, used to turn a name into a coordinate.
type OpenWeatherMapResponse struct {
	Name  string `json:"name"`
	Coord *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main struct {
		Temp     float64 `json:"temp"`
		Pressure int     `json:"pressure"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []OpenWeatherMapCond `json:"weather"`
}

// GeoDirectResult is one match from /geo/1.0/direct.
type GeoDirectResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
}

// ProviderErrorBody is the error payload OpenWeatherMap sends with non-2xx statuses.
type ProviderErrorBody struct {
	Cod     interface{} `json:"cod"`
	Message string      `json:"message"`
}
