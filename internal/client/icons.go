package client

// conditionIcons maps the provider's main condition group to a display icon.
var conditionIcons = map[string]string{
	"Clear":        "☀️",
	"Clouds":       "☁️",
	"Rain":         "🌧️",
	"Drizzle":      "🌦️",
	"Thunderstorm": "⛈️",
	"Snow":         "❄️",
	"Mist":         "🌫️",
	"Fog":          "🌫️",
	"Haze":         "🌫️",
	"Dust":         "🌪️",
	"Sand":         "🌪️",
	"Smoke":        "🌫️",
	"Tornado":      "🌪️",
}

// ConditionIcon returns the icon for a provider condition group, or the
// thermometer fallback for unknown groups.
func ConditionIcon(main string) string {
	if icon, ok := conditionIcons[main]; ok {
		return icon
	}
	return "🌡️"
}
