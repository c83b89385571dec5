package geo

// LocationDetails is a resolved address, produced from either coordinates
// or a free-text address.
type LocationDetails struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
	City             string  `json:"city,omitempty"`
	State            string  `json:"state,omitempty"`
	Country          string  `json:"country,omitempty"`
}

// Place is one raw result from the nearby/text search API.
type Place struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity,omitempty"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	Rating           float64  `json:"rating,omitempty"`
	PriceLevel       *int     `json:"price_level,omitempty"`
	Geometry         Geometry `json:"geometry"`
	Photos           []Photo  `json:"photos,omitempty"`
}

type Geometry struct {
	Location LatLng `json:"location"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Photo struct {
	PhotoReference string `json:"photo_reference"`
}

// Wire shapes of the Google Maps JSON endpoints. Anything other than
// status "OK" is treated as a failed lookup.
type geocodeResponse struct {
	Status  string          `json:"status"`
	Results []geocodeResult `json:"results"`
}

type geocodeResult struct {
	FormattedAddress  string             `json:"formatted_address"`
	Geometry          Geometry           `json:"geometry"`
	AddressComponents []addressComponent `json:"address_components"`
}

type addressComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}

type nearbyResponse struct {
	Status  string  `json:"status"`
	Results []Place `json:"results"`
}
