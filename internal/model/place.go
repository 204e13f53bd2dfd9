package model

import "time"

// PlaceType is one of the four point-of-interest categories. Every place
// has exactly one type-specific extension row keyed by place id.
type PlaceType string

const (
	TypeBrewery      PlaceType = "brewery"
	TypeRestaurant   PlaceType = "restaurant"
	TypeTouristPlace PlaceType = "tourist_place"
	TypeHotel        PlaceType = "hotel"
)

// PlaceTypes lists the valid categories in a stable order, used for
// validation messages.
var PlaceTypes = []PlaceType{TypeBrewery, TypeRestaurant, TypeTouristPlace, TypeHotel}

// ValidPlaceType reports whether t names a known category.
func ValidPlaceType(t PlaceType) bool {
	for _, known := range PlaceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Place mirrors the `places` table. geom is derived from (lat, lon) with
// SRID 4326 and never handled by the application directly.
type Place struct {
	ID        int64
	SourceID  string
	Name      string
	City      string
	State     string
	Country   string
	Lat       float64
	Lon       float64
	CreatedBy *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Feature is one search result row from the places_with_types view.
// DistanceKM is populated by nearest-K queries and ListStatus only for
// authenticated callers.
type Feature struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	City       string      `json:"city"`
	State      string      `json:"state"`
	Country    string      `json:"country"`
	Lat        float64     `json:"lat"`
	Lon        float64     `json:"lon"`
	PlaceType  string      `json:"place_type"`
	DistanceKM *float64    `json:"distance_km,omitempty"`
	ListStatus *ListStatus `json:"list_status,omitempty"`
}

// TypeData carries the optional attributes of the type-specific extension
// row. The fields used depend on the place type; the rest are ignored.
type TypeData struct {
	BreweryType      string   `json:"brewery_type,omitempty"`
	CuisineType      string   `json:"cuisine_type,omitempty"`
	PriceRange       *int     `json:"price_range,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	TouristType      string   `json:"tourist_type,omitempty"`
	EntryFee         *float64 `json:"entry_fee,omitempty"`
	Description      string   `json:"description,omitempty"`
	StarRating       *int     `json:"star_rating,omitempty"`
	PricePerNight    *float64 `json:"price_per_night,omitempty"`
	Amenities        []string `json:"amenities,omitempty"`
	Website          string   `json:"website,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	Street           string   `json:"street,omitempty"`
	PostalCode       string   `json:"postal_code,omitempty"`
	HoursOfOperation string   `json:"hours_of_operation,omitempty"`
	CheckInTime      string   `json:"check_in_time,omitempty"`
	CheckOutTime     string   `json:"check_out_time,omitempty"`
}

// OwnedPlace is a row of /api/places/my-added: a place the caller created,
// with its resolved type and timestamps.
type OwnedPlace struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	City      string     `json:"city"`
	State     string     `json:"state"`
	Country   string     `json:"country"`
	Lat       float64    `json:"lat"`
	Lon       float64    `json:"lon"`
	PlaceType string     `json:"place_type"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
