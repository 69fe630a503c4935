package geolib

import (
	"strings"

	"github.com/pariz/gountries"
)

var countryCodeQuery = gountries.New()

// NormalizeAlpha2Code returns a normalized 2-letter ISO3166 code.
// Normalized code is uppercased with some additional mapping. For
// example, some databases return ZZ as 'unknown' country. This function
// returns "" instead. Some databases still map Serbia to YU. This
// correctly maps YU to CS.
//
// So, whenever you want to use 2-letter ISO3166 code and it is coming
// from unknown source, it is recommended to normalize it with this
// function.
func NormalizeAlpha2Code(alpha2 string) string {
	alpha2 = strings.ToUpper(strings.TrimSpace(alpha2))

	if len(alpha2) != 2 {
		return ""
	}

	switch alpha2 {
	case "ZZ", "AP", "EU", "XX":
		return ""
	case "YU":
		return "CS"
	case "FX":
		return "FR"
	case "UK":
		return "GB"
	default:
		return alpha2
	}
}

// Alpha3ToAlpha2 maps 3-letter ISO3166 code to 2-letter one. Returns
// empty string for unknown codes.
func Alpha3ToAlpha2(alpha3 string) string {
	alpha3 = strings.ToUpper(strings.TrimSpace(alpha3))

	return NormalizeAlpha2Code(countryCodeQuery.Alpha3ToAlpha2[alpha3])
}

// CountryName returns a common english name of the country by its
// 2-letter code. Returns empty string if country is unknown.
func CountryName(alpha2 string) string {
	country, ok := countryCodeQuery.Countries[NormalizeAlpha2Code(alpha2)]
	if !ok {
		return ""
	}

	return country.Name.BaseLang.Common
}
