package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// ReportKind tells whether a report came from the current-conditions or the historical path.
type ReportKind string

const (
	KindCurrent    ReportKind = "current"
	KindHistorical ReportKind = "historical"
)

// Query is a single weather lookup. A zero Date asks for current conditions.
type Query struct {
	Location string
	Date     time.Time
}

// Historical reports whether the query targets a past date.
func (q Query) Historical() bool {
	return !q.Date.IsZero()
}

// Report is the normalized weather view returned by every provider.
type Report struct {
	Location     string     `json:"location"`
	Kind         ReportKind `json:"kind"`
	Timestamp    time.Time  `json:"timestamp"` // always UTC
	TemperatureC float64    `json:"temperatureC"`
	Description  string     `json:"description"`
	Condition    Condition  `json:"condition"`

	// HumidityPct is nil when the provider did not report humidity.
	HumidityPct *float64 `json:"humidityPercent,omitempty"`

	WindSpeedMS float64    `json:"windSpeedMs"`
	Provider    ProviderID `json:"provider"`
}

// Humidity returns the humidity and whether the provider reported it.
func (r Report) Humidity() (float64, bool) {
	if r.HumidityPct == nil {
		return 0, false
	}
	return *r.HumidityPct, true
}

// Percent is a small helper for building optional humidity values.
func Percent(v float64) *float64 {
	return &v
}
