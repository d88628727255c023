// Package forecast reduces 3-hourly forecast entries into the per-day
// summaries the dashboard renders. Pure functions over at most ~40 points
// (5 days of 8 slots); the API service never aggregates.
package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/weatherupdate/weather-update-service/internal/models"
)

// DailySummary is one day of aggregated forecast for display: the day's
// temperature extremes, mean humidity, peak wind, and the condition of the
// slot closest to noon as the day's representative weather.
type DailySummary struct {
	Date           string `json:"date"` // YYYY-MM-DD, UTC
	Condition      string `json:"condition"`
	Icon           string `json:"icon"`
	TempHighC      int    `json:"tempHighC"`
	TempLowC       int    `json:"tempLowC"`
	AvgHumidityPct int    `json:"avgHumidityPct"`
	MaxWindKmh     int    `json:"maxWindKmh"`
}

// Overall holds the headline metrics across all summarized days.
type Overall struct {
	HighestTempC   int `json:"highestTempC"`
	LowestTempC    int `json:"lowestTempC"`
	AvgHumidityPct int `json:"avgHumidityPct"`
	MaxWindKmh     int `json:"maxWindKmh"`
}

// Aggregate groups entries by UTC date and reduces each day to a
// DailySummary. Days are returned in ascending date order.
func Aggregate(entries []models.ForecastEntry) []DailySummary {
	if len(entries) == 0 {
		return nil
	}

	byDate := make(map[string][]models.ForecastEntry)
	for _, e := range entries {
		date := e.Timestamp.UTC().Format("2006-01-02")
		byDate[date] = append(byDate[date], e)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	summaries := make([]DailySummary, 0, len(dates))
	for _, date := range dates {
		summaries = append(summaries, summarizeDay(date, byDate[date]))
	}
	return summaries
}

// summarizeDay reduces one day's slots. The day's condition and icon come
// from the slot whose hour is closest to 12:00.
func summarizeDay(date string, slots []models.ForecastEntry) DailySummary {
	high := slots[0].TemperatureC
	low := slots[0].TemperatureC
	maxWind := slots[0].WindSpeedKmh
	humiditySum := 0
	noon := slots[0]

	for _, s := range slots {
		if s.TemperatureC > high {
			high = s.TemperatureC
		}
		if s.TemperatureC < low {
			low = s.TemperatureC
		}
		if s.WindSpeedKmh > maxWind {
			maxWind = s.WindSpeedKmh
		}
		humiditySum += s.HumidityPct
		if noonDistance(s.Timestamp) < noonDistance(noon.Timestamp) {
			noon = s
		}
	}

	return DailySummary{
		Date:           date,
		Condition:      noon.Condition,
		Icon:           noon.Icon,
		TempHighC:      high,
		TempLowC:       low,
		AvgHumidityPct: roundedMean(humiditySum, len(slots)),
		MaxWindKmh:     maxWind,
	}
}

// noonDistance returns how far the timestamp's UTC hour is from 12:00.
func noonDistance(t time.Time) int {
	d := t.UTC().Hour() - 12
	if d < 0 {
		return -d
	}
	return d
}

// Summarize computes the headline metrics across the days: highest and
// lowest daily temperature, mean of the daily average humidities, and the
// peak wind of any day.
func Summarize(summaries []DailySummary) Overall {
	if len(summaries) == 0 {
		return Overall{}
	}
	o := Overall{
		HighestTempC: summaries[0].TempHighC,
		LowestTempC:  summaries[0].TempLowC,
		MaxWindKmh:   summaries[0].MaxWindKmh,
	}
	humiditySum := 0
	for _, s := range summaries {
		if s.TempHighC > o.HighestTempC {
			o.HighestTempC = s.TempHighC
		}
		if s.TempLowC < o.LowestTempC {
			o.LowestTempC = s.TempLowC
		}
		if s.MaxWindKmh > o.MaxWindKmh {
			o.MaxWindKmh = s.MaxWindKmh
		}
		humiditySum += s.AvgHumidityPct
	}
	o.AvgHumidityPct = roundedMean(humiditySum, len(summaries))
	return o
}

// roundedMean returns sum/n rounded to the nearest integer.
func roundedMean(sum, n int) int {
	return int(math.Round(float64(sum) / float64(n)))
}
