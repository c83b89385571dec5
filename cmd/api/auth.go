package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"amalajoint/internal/mailer"
	"amalajoint/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

type SignupPayload struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,ngphone"`
	Age      *int    `json:"age,omitempty" validate:"omitempty,gte=13,lte=120"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type SessionResponse struct {
	User *store.User `json:"user"`
	AuthTokens
}

// Signup godoc
//
//	@Summary		Register a new user
//	@Description	Creates an account and returns access and refresh tokens
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		SignupPayload	true	"User details"
//	@Success		201		{object}	SessionResponse	"User created"
//	@Failure		400		{object}	error			"Validation failed or duplicate email"
//	@Failure		500		{object}	error			"Internal server error"
//	@Router			/auth/signup [post]
func (app *application) signupHandler(w http.ResponseWriter, r *http.Request) {
	var payload SignupPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := &store.User{
		Name:  payload.Name,
		Email: payload.Email,
		Phone: payload.Phone,
		Age:   payload.Age,
	}
	if err := user.Password.Set(payload.Password); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	ctx := r.Context()

	if err := app.store.Users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	accessToken, refreshToken, err := app.authenticator.GenerateTokens(user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	// Welcome mail is best-effort; signup never fails on a mail outage.
	if app.mailer != nil {
		vars := struct{ Username string }{Username: user.Name}
		if _, err := app.mailer.Send(mailer.UserWelcomeTemplate, user.Name, user.Email, vars); err != nil {
			app.logger.Errorw("error sending welcome email", "email", user.Email, "error", err)
		}
	}

	resp := SessionResponse{
		User:       user,
		AuthTokens: AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken},
	}

	if err := app.jsonResponse(w, http.StatusCreated, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

type LoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login godoc
//
//	@Summary		Log a user in
//	@Description	Verifies credentials and returns access and refresh tokens
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		LoginPayload	true	"User credentials"
//	@Success		200		{object}	SessionResponse	"Login successful"
//	@Failure		400		{object}	error			"Invalid payload"
//	@Failure		401		{object}	error			"Invalid credentials"
//	@Router			/auth/login [post]
func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.store.Users.GetByEmail(r.Context(), payload.Email)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.unauthorizedErrorResponse(w, r, fmt.Errorf("invalid credentials"))
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := user.Password.Compare(payload.Password); err != nil {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("invalid credentials"))
		return
	}

	accessToken, refreshToken, err := app.authenticator.GenerateTokens(user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	resp := SessionResponse{
		User:       user,
		AuthTokens: AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken},
	}

	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

type RefreshPayload struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshToken godoc
//
//	@Summary		Refresh the access token
//	@Description	Exchanges a valid refresh token for a new token pair
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		RefreshPayload	true	"Refresh token"
//	@Success		200		{object}	AuthTokens		"New token pair"
//	@Failure		401		{object}	error			"Invalid refresh token"
//	@Router			/auth/refresh [post]
func (app *application) refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload RefreshPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	jwtToken, err := app.authenticator.ValidateRefreshToken(payload.RefreshToken)
	if err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}

	claims, _ := jwtToken.Claims.(jwt.MapClaims)
	userID, err := strconv.ParseInt(fmt.Sprintf("%.f", claims["sub"]), 10, 64)
	if err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}

	user, err := app.store.Users.GetByID(r.Context(), userID)
	if err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}

	accessToken, refreshToken, err := app.authenticator.GenerateTokens(user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	resp := AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// Me godoc
//
//	@Summary		Current user
//	@Description	Returns the authenticated user's profile
//	@Tags			authentication
//	@Produce		json
//	@Success		200	{object}	store.User	"Current user"
//	@Failure		401	{object}	error		"Unauthorized"
//	@Security		ApiKeyAuth
//	@Router			/auth/me [get]
func (app *application) meHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if err := app.jsonResponse(w, http.StatusOK, user); err != nil {
		app.internalServerError(w, r, err)
	}
}
