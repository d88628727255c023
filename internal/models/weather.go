package models

import "time"

// CurrentWeather is the per-request snapshot returned by the current-conditions
// endpoint. Values are metric: whole °C, km/h, km. Never persisted.
type CurrentWeather struct {
	City         string    `json:"city"`
	Condition    string    `json:"condition"`
	Icon         string    `json:"icon"`
	TemperatureC int       `json:"temperatureC"`
	FeelsLikeC   int       `json:"feelsLikeC"`
	HumidityPct  int       `json:"humidityPct"`
	WindSpeedKmh int       `json:"windSpeedKmh"`
	VisibilityKm float64   `json:"visibilityKm"`
	Timestamp    time.Time `json:"timestamp"`
}

// ForecastEntry is one 3-hour provider slot from the 5-day forecast.
type ForecastEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Condition    string    `json:"condition"`
	Icon         string    `json:"icon"`
	TemperatureC int       `json:"temperatureC"`
	FeelsLikeC   int       `json:"feelsLikeC"`
	HumidityPct  int       `json:"humidityPct"`
	WindSpeedKmh int       `json:"windSpeedKmh"`
	VisibilityKm float64   `json:"visibilityKm"`
}

// Forecast is the forecast endpoint response: the resolved city name and the
// 3-hourly entries for the requested number of days (8 slots per day).
type Forecast struct {
	City    string          `json:"city"`
	Days    int             `json:"days"`
	Entries []ForecastEntry `json:"entries"`
}
