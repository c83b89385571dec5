package main

import (
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"amalajoint/internal/store"
	"amalajoint/internal/verify"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// newPlaceID mints an internal place identifier for user-submitted stores,
// distinguishable from Google place ids by the amala_ prefix.
func newPlaceID() string {
	return "amala_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

type CreateStorePayload struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Phone       string   `json:"phone" validate:"omitempty,max=20"`
	Location    string   `json:"location" validate:"required,max=500"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	OpensAt     string   `json:"opens_at"`
	ClosesAt    string   `json:"closes_at"`
	Description string   `json:"description" validate:"omitempty,max=2000"`
	ImageURL    string   `json:"image_url" validate:"omitempty,url"`
}

// CreateStore godoc
//
//	@Summary		Submit a new amala store
//	@Description	Registers an unverified store. Accepts JSON or multipart form data with an optional image file.
//	@Tags			stores
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateStorePayload	true	"Store details"
//	@Success		201		{object}	store.Store
//	@Failure		400		{object}	error
//	@Failure		401		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/stores [post]
func (app *application) createStoreHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload CreateStorePayload
	var image multipart.File

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		payload = CreateStorePayload{
			Name:        r.FormValue("name"),
			Phone:       r.FormValue("phone"),
			Location:    r.FormValue("location"),
			OpensAt:     r.FormValue("opens_at"),
			ClosesAt:    r.FormValue("closes_at"),
			Description: r.FormValue("description"),
			ImageURL:    r.FormValue("image_url"),
		}
		if v := r.FormValue("latitude"); v != "" {
			lat, err := strconv.ParseFloat(v, 64)
			if err != nil {
				app.badRequestResponse(w, r, errors.New("invalid latitude"))
				return
			}
			payload.Latitude = &lat
		}
		if v := r.FormValue("longitude"); v != "" {
			lng, err := strconv.ParseFloat(v, 64)
			if err != nil {
				app.badRequestResponse(w, r, errors.New("invalid longitude"))
				return
			}
			payload.Longitude = &lng
		}
		if file, _, err := r.FormFile("image"); err == nil {
			image = file
			defer file.Close()
		}
	} else {
		if err := readJSON(w, r, &payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	newStore := &store.Store{
		PlaceID:        newPlaceID(),
		Name:           payload.Name,
		Phone:          payload.Phone,
		Location:       payload.Location,
		Latitude:       payload.Latitude,
		Longitude:      payload.Longitude,
		OpensAt:        payload.OpensAt,
		ClosesAt:       payload.ClosesAt,
		Description:    payload.Description,
		VerifiedBy:     "amala-joint",
		CreatedBy:      user.ID,
		CreatedByEmail: user.Email,
	}

	if image != nil {
		if app.uploads == nil {
			app.serviceUnavailableResponse(w, r, errors.New("image host not configured"))
			return
		}
		imageURL, publicID, err := app.uploads.Upload(r.Context(), image, "amala_stores")
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		newStore.ImageURL = &imageURL
		newStore.CloudinaryPublicID = &publicID
	} else if payload.ImageURL != "" {
		newStore.ImageURL = &payload.ImageURL
	}

	if err := app.store.Stores.Create(r.Context(), newStore); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, newStore); err != nil {
		app.internalServerError(w, r, err)
	}
}

// GetStore godoc
//
//	@Summary		Fetch one store
//	@Description	Looks a store up by place_id or numeric id
//	@Tags			stores
//	@Produce		json
//	@Param			storeID	path		string	true	"Store place_id or id"
//	@Success		200		{object}	store.Store
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/stores/{storeID} [get]
func (app *application) getStoreHandler(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "storeID")

	s, err := app.store.Stores.GetByRef(r.Context(), ref)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, s); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ListUnverifiedStores godoc
//
//	@Summary		List unverified stores
//	@Tags			stores
//	@Produce		json
//	@Success		200	{array}	store.Store
//	@Security		ApiKeyAuth
//	@Router			/stores/unverified [get]
func (app *application) getUnverifiedStoresHandler(w http.ResponseWriter, r *http.Request) {
	app.listStoresByVerified(w, r, false)
}

// ListVerifiedStores godoc
//
//	@Summary		List verified stores
//	@Tags			stores
//	@Produce		json
//	@Success		200	{array}	store.Store
//	@Security		ApiKeyAuth
//	@Router			/stores/verified [get]
func (app *application) getVerifiedStoresHandler(w http.ResponseWriter, r *http.Request) {
	app.listStoresByVerified(w, r, true)
}

func (app *application) listStoresByVerified(w http.ResponseWriter, r *http.Request, verified bool) {
	stores, err := app.store.Stores.ListByVerified(r.Context(), verified)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, stores); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ListUserStores godoc
//
//	@Summary		List stores submitted by a user
//	@Tags			stores
//	@Produce		json
//	@Param			email	path	string	true	"Submitter email"
//	@Success		200		{array}	store.Store
//	@Security		ApiKeyAuth
//	@Router			/stores/user/{email} [get]
func (app *application) getUserStoresHandler(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || email == "" {
		app.badRequestResponse(w, r, errors.New("invalid email"))
		return
	}

	stores, err := app.store.Stores.ListByCreatorEmail(r.Context(), email)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, stores); err != nil {
		app.internalServerError(w, r, err)
	}
}

// StoreStats godoc
//
//	@Summary		Store verification statistics
//	@Tags			stores
//	@Produce		json
//	@Success		200	{object}	store.StoreStats
//	@Security		ApiKeyAuth
//	@Router			/stores/stats [get]
func (app *application) storeStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := app.store.Stores.Stats(r.Context())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, stats); err != nil {
		app.internalServerError(w, r, err)
	}
}

type VerifyStorePayload struct {
	Reason   string `json:"reason" validate:"required,max=1000"`
	ProofURL string `json:"proof_url" validate:"required,url"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

// VerifyStore godoc
//
//	@Summary		Submit a verification request for a store
//	@Description	Each submission is adjudicated by the AI judge and appended to the store's verification log. Three approvals verify the store.
//	@Tags			stores
//	@Accept			json
//	@Produce		json
//	@Param			storeID	path		string				true	"Store place_id or id"
//	@Param			payload	body		VerifyStorePayload	true	"Verification evidence"
//	@Success		200		{object}	verify.Result
//	@Failure		400		{object}	error
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/stores/{storeID}/verify [post]
func (app *application) verifyStoreHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	sub := verify.Submission{
		StoreRef:    chi.URLParam(r, "storeID"),
		SubmitterID: user.ID,
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		sub.Reason = r.FormValue("reason")
		sub.ProofURL = r.FormValue("proof_url")
		sub.ImageURL = r.FormValue("image_url")
		if file, _, err := r.FormFile("image"); err == nil {
			sub.Image = file
			defer file.Close()
		}
	} else {
		var payload VerifyStorePayload
		if err := readJSON(w, r, &payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		sub.Reason = payload.Reason
		sub.ProofURL = payload.ProofURL
		sub.ImageURL = payload.ImageURL
	}

	result, err := app.verifier.Submit(r.Context(), sub)
	if err != nil {
		var uploadErr *verify.UploadError
		switch {
		case errors.Is(err, verify.ErrReasonRequired), errors.Is(err, verify.ErrProofRequired):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.As(err, &uploadErr):
			app.internalServerError(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, result); err != nil {
		app.internalServerError(w, r, err)
	}
}

// UploadImage godoc
//
//	@Summary		Upload a store image
//	@Description	Uploads an image to the image host and returns its URL and public id
//	@Tags			stores
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image	formData	file	true	"Image file"
//	@Param			folder	formData	string	false	"Target folder"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/stores/upload-image [post]
func (app *application) uploadImageHandler(w http.ResponseWriter, r *http.Request) {
	if app.uploads == nil {
		app.serviceUnavailableResponse(w, r, errors.New("image host not configured"))
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		app.badRequestResponse(w, r, errors.New("image file is required"))
		return
	}
	defer file.Close()

	folder := r.FormValue("folder")
	if folder == "" {
		folder = "amala_uploads"
	}

	imageURL, publicID, err := app.uploads.Upload(r.Context(), file, folder)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{
		"image_url": imageURL,
		"public_id": publicID,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// DeleteImage godoc
//
//	@Summary		Delete an uploaded image
//	@Tags			stores
//	@Produce		json
//	@Param			publicID	path		string	true	"Cloudinary public id (URL-encoded)"
//	@Success		200			{object}	map[string]string
//	@Failure		400			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/stores/image/{publicID} [delete]
func (app *application) deleteImageHandler(w http.ResponseWriter, r *http.Request) {
	if app.uploads == nil {
		app.serviceUnavailableResponse(w, r, errors.New("image host not configured"))
		return
	}

	publicID, err := url.PathUnescape(chi.URLParam(r, "publicID"))
	if err != nil || publicID == "" {
		app.badRequestResponse(w, r, errors.New("invalid public id"))
		return
	}

	if err := app.uploads.Delete(r.Context(), publicID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"deleted": publicID}); err != nil {
		app.internalServerError(w, r, err)
	}
}
