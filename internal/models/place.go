package models

// Place is the structured result of resolving a free-text address,
// as produced by an address-autocomplete widget or by the naive
// formatted-address parser.
type Place struct {
	Address    string  `json:"address"`
	Lat        float64 `json:"lat,omitempty"`
	Lng        float64 `json:"lng,omitempty"`
	PlaceID    string  `json:"place_id,omitempty"`
	Street     string  `json:"street,omitempty"`
	City       string  `json:"city,omitempty"`
	State      string  `json:"state,omitempty"`
	Country    string  `json:"country,omitempty"`
	PostalCode string  `json:"postal_code,omitempty"`
}
