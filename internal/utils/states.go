package utils

import "strings"

// stateAbbr maps lowercase US state names to their USPS abbreviations.
// State filters accept either form, so searches for "Texas" and "TX" hit
// the same rows no matter which variant the data carries.
var stateAbbr = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT",
	"delaware": "DE", "florida": "FL", "georgia": "GA", "hawaii": "HI",
	"idaho": "ID", "illinois": "IL", "indiana": "IN", "iowa": "IA",
	"kansas": "KS", "kentucky": "KY", "louisiana": "LA", "maine": "ME",
	"maryland": "MD", "massachusetts": "MA", "michigan": "MI",
	"minnesota": "MN", "mississippi": "MS", "missouri": "MO",
	"montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM",
	"new york": "NY", "north carolina": "NC", "north dakota": "ND",
	"ohio": "OH", "oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA",
	"rhode island": "RI", "south carolina": "SC", "south dakota": "SD",
	"tennessee": "TN", "texas": "TX", "utah": "UT", "vermont": "VT",
	"virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY",
	"district of columbia": "DC",
}

var stateName = func() map[string]string {
	m := make(map[string]string, len(stateAbbr))
	for name, ab := range stateAbbr {
		m[strings.ToLower(ab)] = name
	}
	return m
}()

// StateVariants expands a state filter into the set of strings that should
// match: the input itself plus the abbreviation for a full name, or the
// full name for an abbreviation. Unknown values pass through unchanged.
func StateVariants(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	key := strings.ToLower(s)
	if ab, ok := stateAbbr[key]; ok {
		return []string{s, ab}
	}
	if name, ok := stateName[key]; ok {
		return []string{s, name}
	}
	return []string{s}
}
