package model

type Unit string

const (
	Celsius    Unit = "celsius"
	Fahrenheit Unit = "fahrenheit"
)

// MaxRecentSearches bounds the recent search history.
const MaxRecentSearches = 5

// Preferences is the persisted user preference record.
type Preferences struct {
	Unit           Unit     `json:"unit"`
	RecentSearches []string `json:"recentSearches"`
	Favorites      []string `json:"favorites"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Unit:           Celsius,
		RecentSearches: []string{},
		Favorites:      []string{},
	}
}

// Clone returns a deep copy so callers can't mutate the store's slices.
func (p Preferences) Clone() Preferences {
	return Preferences{
		Unit:           p.Unit,
		RecentSearches: append([]string{}, p.RecentSearches...),
		Favorites:      append([]string{}, p.Favorites...),
	}
}

func (p Preferences) IsFavorite(name string) bool {
	for _, f := range p.Favorites {
		if f == name {
			return true
		}
	}
	return false
}

// Symbol returns the display suffix for the unit.
func (u Unit) Symbol() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}

// ConvertTemperature converts a stored °C value into the requested unit.
func ConvertTemperature(celsius float64, unit Unit) float64 {
	if unit == Fahrenheit {
		return celsius*9/5 + 32
	}
	return celsius
}
