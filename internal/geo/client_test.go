package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL))
}

func TestGeocodeExtractsAddressComponents(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "12 Allen Avenue, Ikeja", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"formatted_address": "12 Allen Ave, Ikeja, Lagos, Nigeria",
				"geometry": {"location": {"lat": 6.6018, "lng": 3.3515}},
				"address_components": [
					{"long_name": "Ikeja", "types": ["locality", "political"]},
					{"long_name": "Lagos", "types": ["administrative_area_level_1"]},
					{"long_name": "Nigeria", "types": ["country"]}
				]
			}]
		}`))
	})

	details, err := client.Geocode(context.Background(), "12 Allen Avenue, Ikeja")
	require.NoError(t, err)

	assert.Equal(t, 6.6018, details.Latitude)
	assert.Equal(t, 3.3515, details.Longitude)
	assert.Equal(t, "12 Allen Ave, Ikeja, Lagos, Nigeria", details.FormattedAddress)
	assert.Equal(t, "Ikeja", details.City)
	assert.Equal(t, "Lagos", details.State)
	assert.Equal(t, "Nigeria", details.Country)
}

func TestGeocodeNonOKStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	})

	_, err := client.Geocode(context.Background(), "nowhere")

	var statusErr *ErrStatus
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "ZERO_RESULTS", statusErr.Status)
}

func TestReverseGeocodeSendsLatLng(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "6.601800,3.351500", r.URL.Query().Get("latlng"))
		w.Write([]byte(`{
			"status": "OK",
			"results": [{"formatted_address": "Ikeja, Lagos", "geometry": {"location": {"lat": 6.6018, "lng": 3.3515}}}]
		}`))
	})

	details, err := client.ReverseGeocode(context.Background(), 6.6018, 3.3515)
	require.NoError(t, err)
	assert.Equal(t, "Ikeja, Lagos", details.FormattedAddress)
}

func TestSearchNearby(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/nearbysearch/json", r.URL.Path)
		assert.Equal(t, "4000", r.URL.Query().Get("radius"))
		assert.Equal(t, "amala", r.URL.Query().Get("keyword"))

		w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"place_id": "gplace_1",
				"name": "Skye Amala Spot",
				"vicinity": "Opebi Road",
				"rating": 4.2,
				"price_level": 1,
				"geometry": {"location": {"lat": 6.59, "lng": 3.36}},
				"photos": [{"photo_reference": "ref123"}]
			}]
		}`))
	})

	places, err := client.SearchNearby(context.Background(), 6.6, 3.35, 4000, "amala")
	require.NoError(t, err)

	require.Len(t, places, 1)
	assert.Equal(t, "gplace_1", places[0].PlaceID)
	assert.Equal(t, "Skye Amala Spot", places[0].Name)
	require.NotNil(t, places[0].PriceLevel)
	assert.Equal(t, 1, *places[0].PriceLevel)
	assert.Equal(t, "ref123", places[0].Photos[0].PhotoReference)
}

func TestSearchNearbyZeroResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	})

	places, err := client.SearchNearby(context.Background(), 6.6, 3.35, 4000, "amala")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestSearchNearbyDeniedStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "REQUEST_DENIED", "results": []}`))
	})

	_, err := client.SearchNearby(context.Background(), 6.6, 3.35, 4000, "amala")
	assert.Error(t, err)
}

func TestAutocompletePassesRawPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/autocomplete/json", r.URL.Path)
		assert.Equal(t, "establishment|geocode", r.URL.Query().Get("types"))
		assert.Equal(t, "country:ng", r.URL.Query().Get("components"))
		w.Write([]byte(`{"status": "OK", "predictions": [{"description": "Ikeja, Lagos"}]}`))
	})

	raw, err := client.Autocomplete(context.Background(), "Ikeja")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "predictions")
}

func TestPlaceDetailsRequestsGeometryFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/details/json", r.URL.Path)
		assert.Equal(t, "geometry,formatted_address", r.URL.Query().Get("fields"))
		w.Write([]byte(`{"status": "OK", "result": {}}`))
	})

	_, err := client.PlaceDetails(context.Background(), "gplace_1")
	require.NoError(t, err)
}

func TestHTTPErrorSurfaces(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Geocode(context.Background(), "Ikeja")
	assert.Error(t, err)
}

func TestPhotoURL(t *testing.T) {
	client := NewClient("test-key")

	url := client.PhotoURL("ref123")
	assert.Contains(t, url, "photo_reference=ref123")
	assert.Contains(t, url, "key=test-key")
	assert.Contains(t, url, "maxwidth=400")

	assert.Empty(t, client.PhotoURL(""))
}
