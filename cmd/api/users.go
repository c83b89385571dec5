package main

import (
	"net/http"

	"amalajoint/internal/store"
)

type userKey string

const userCtx userKey = "user"

func getUserFromContext(r *http.Request) *store.User {
	if user, ok := r.Context().Value(userCtx).(*store.User); ok {
		return user
	}
	return nil
}

// UpdateUser godoc
//
//	@Summary		Update profile
//	@Description	Applies a partial update to the authenticated user's profile
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			updateData	body		map[string]interface{}	true	"Fields to update"
//	@Success		200			{object}	map[string]string		"User updated successfully"
//	@Failure		400			{object}	error					"Invalid input"
//	@Failure		500			{object}	error					"Internal server error"
//	@Security		ApiKeyAuth
//	@Router			/users [patch]
func (app *application) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var updateData map[string]interface{}
	if err := readJSON(w, r, &updateData); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.Users.Update(r.Context(), user.ID, updateData); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "user updated successfully"})
}
