package main

import (
	"errors"
	"net/http"

	"amalajoint/internal/agent"
	"amalajoint/internal/finder"
)

var errAgentNotConfigured = errors.New("ai agent not configured")

type ChatPayload struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// Chat godoc
//
//	@Summary		Chat with the amala assistant
//	@Description	Relays a conversational message to the AI agent
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ChatPayload	true	"User message"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	error
//	@Failure		503		{object}	error
//	@Router			/ai/chat [post]
func (app *application) chatHandler(w http.ResponseWriter, r *http.Request) {
	if app.agent == nil {
		app.serviceUnavailableResponse(w, r, errAgentNotConfigured)
		return
	}

	var payload ChatPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reply, err := app.agent.Chat(r.Context(), payload.Message)
	if err != nil {
		if errors.Is(err, agent.ErrTimeout) {
			app.serviceUnavailableResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"response": reply}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type FinderLocation struct {
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
	Long *float64 `json:"long"` // some clients send long instead of lng
}

type AmalaFinderPayload struct {
	Query    string          `json:"query" validate:"required,max=1000"`
	Location *FinderLocation `json:"location"`
	Address  string          `json:"address" validate:"omitempty,max=500"`
}

// AmalaFinder godoc
//
//	@Summary		Find amala spots near a location
//	@Description	Merges verified stores, live nearby places and AI agent suggestions into one deduplicated list
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		AmalaFinderPayload	true	"Query and location"
//	@Success		200		{object}	finder.Result
//	@Failure		400		{object}	error
//	@Failure		503		{object}	error
//	@Router			/ai/amala-finder [post]
func (app *application) amalaFinderHandler(w http.ResponseWriter, r *http.Request) {
	var payload AmalaFinderPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	loc := finder.Location{Address: payload.Address}
	if payload.Location != nil {
		loc.Lat = payload.Location.Lat
		loc.Lng = payload.Location.Lng
		if loc.Lng == nil {
			loc.Lng = payload.Location.Long
		}
	}

	result, err := app.finder.FindPlaces(r.Context(), payload.Query, loc)
	if err != nil {
		switch {
		case errors.Is(err, finder.ErrQueryRequired), errors.Is(err, finder.ErrLocationRequired):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, finder.ErrNoUsableSource):
			app.serviceUnavailableResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, result); err != nil {
		app.internalServerError(w, r, err)
	}
}
