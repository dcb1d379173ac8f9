package geo

import (
	"strings"

	"investgroup/api/models"
)

// UnknownCode is sent by the edge when it cannot geolocate a request.
const UnknownCode = "XX"

const Globe = "🌐"

// regionalOffset maps 'A' (0x41) to REGIONAL INDICATOR SYMBOL LETTER A (0x1F1E6).
const regionalOffset = 0x1F1E6 - 'A'

var countryNames = map[string]string{
	"US": "United States",
	"GB": "United Kingdom",
	"CA": "Canada",
	"AU": "Australia",
	"DE": "Germany",
	"FR": "France",
	"IT": "Italy",
	"ES": "Spain",
	"NL": "Netherlands",
	"SE": "Sweden",
	"NO": "Norway",
	"DK": "Denmark",
	"FI": "Finland",
	"BE": "Belgium",
	"AT": "Austria",
	"CH": "Switzerland",
	"IE": "Ireland",
	"PT": "Portugal",
	"GR": "Greece",
	"PL": "Poland",
	"CZ": "Czech Republic",
	"HU": "Hungary",
	"RO": "Romania",
	"BG": "Bulgaria",
	"HR": "Croatia",
	"SK": "Slovakia",
	"SI": "Slovenia",
	"EE": "Estonia",
	"LV": "Latvia",
	"LT": "Lithuania",
	"JP": "Japan",
	"CN": "China",
	"IN": "India",
	"KR": "South Korea",
	"SG": "Singapore",
	"HK": "Hong Kong",
	"TW": "Taiwan",
	"TH": "Thailand",
	"MY": "Malaysia",
	"ID": "Indonesia",
	"PH": "Philippines",
	"VN": "Vietnam",
	"NZ": "New Zealand",
	"BR": "Brazil",
	"MX": "Mexico",
	"AR": "Argentina",
	"CL": "Chile",
	"CO": "Colombia",
	"PE": "Peru",
	"VE": "Venezuela",
	"ZA": "South Africa",
	"NG": "Nigeria",
	"KE": "Kenya",
	"EG": "Egypt",
	"IL": "Israel",
	"TR": "Turkey",
	"SA": "Saudi Arabia",
	"AE": "UAE",
	"RU": "Russia",
	"UA": "Ukraine",
	UnknownCode: "Unknown",
}

// Flag renders a two-letter country code as its flag emoji. Missing,
// unknown or malformed codes get a globe.
func Flag(code string) string {
	if code == "" || code == UnknownCode || len(code) != 2 {
		return Globe
	}
	upper := strings.ToUpper(code)
	var b strings.Builder
	for i := 0; i < len(upper); i++ {
		c := upper[i]
		if c < 'A' || c > 'Z' {
			return Globe
		}
		b.WriteRune(rune(c) + regionalOffset)
	}
	return b.String()
}

// Name returns the English name for a code, or the code itself when the
// table has no entry.
func Name(code string) string {
	if name, ok := countryNames[code]; ok {
		return name
	}
	return code
}

func Label(code string) models.CountryLabel {
	return models.CountryLabel{Code: code, Name: Name(code), Flag: Flag(code)}
}
