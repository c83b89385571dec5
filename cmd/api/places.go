package main

import (
	"errors"
	"net/http"
)

var errMapsNotConfigured = errors.New("maps api not configured")

type AutocompletePayload struct {
	Input string `json:"input" validate:"required,max=200"`
}

// Autocomplete godoc
//
//	@Summary		Place autocomplete
//	@Description	Proxies Google Places autocomplete, restricted to Nigerian establishments and addresses
//	@Tags			places
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		AutocompletePayload	true	"Search input"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		400		{object}	error
//	@Failure		503		{object}	error
//	@Router			/places/autocomplete [post]
func (app *application) autocompleteHandler(w http.ResponseWriter, r *http.Request) {
	if app.maps == nil {
		app.serviceUnavailableResponse(w, r, errMapsNotConfigured)
		return
	}

	var payload AutocompletePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	raw, err := app.maps.Autocomplete(r.Context(), payload.Input)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.writeRawJSON(w, raw)
}

type PlaceDetailsPayload struct {
	PlaceID string `json:"place_id" validate:"required,max=300"`
}

// PlaceDetails godoc
//
//	@Summary		Place details
//	@Description	Proxies Google Places details for a place id, returning geometry and formatted address
//	@Tags			places
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		PlaceDetailsPayload	true	"Place id"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		400		{object}	error
//	@Failure		503		{object}	error
//	@Router			/places/details [post]
func (app *application) placeDetailsHandler(w http.ResponseWriter, r *http.Request) {
	if app.maps == nil {
		app.serviceUnavailableResponse(w, r, errMapsNotConfigured)
		return
	}

	var payload PlaceDetailsPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	raw, err := app.maps.PlaceDetails(r.Context(), payload.PlaceID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.writeRawJSON(w, raw)
}

type GeocodePayload struct {
	Latitude  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Geocode godoc
//
//	@Summary		Reverse geocode coordinates
//	@Description	Proxies Google reverse geocoding for a coordinate pair
//	@Tags			places
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		GeocodePayload	true	"Coordinates"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		400		{object}	error
//	@Failure		503		{object}	error
//	@Router			/places/geocode [post]
func (app *application) geocodeHandler(w http.ResponseWriter, r *http.Request) {
	if app.maps == nil {
		app.serviceUnavailableResponse(w, r, errMapsNotConfigured)
		return
	}

	var payload GeocodePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	raw, err := app.maps.RawGeocode(r.Context(), payload.Latitude, payload.Longitude)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.writeRawJSON(w, raw)
}
