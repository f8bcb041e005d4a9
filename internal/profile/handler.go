// DamifeZion | 2026
// handler.go

package profile

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/DamifeZion/new-replay/internal/core"
	"github.com/DamifeZion/new-replay/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/profiles", func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{profileID}", h.Get)
		r.Patch("/{profileID}", h.Update)
		r.Delete("/{profileID}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	profiles, err := h.service.All(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]ProfileResponse, 0, len(profiles))
	for i := range profiles {
		out = append(out, toResponse(&profiles[i]))
	}

	core.OK(w, ProfilesResponse{Profiles: out})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	profileID := chi.URLParam(r, "profileID")

	profile, err := h.service.Get(r.Context(), userID, profileID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "profile")
			return
		}
		if errors.Is(err, core.ErrForbidden) {
			core.Forbidden(w, "cannot access another user's profile")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, toResponse(profile))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	profile, err := h.service.Create(
		r.Context(),
		userID,
		req.Name,
		req.IsKids,
		req.Avatar,
	)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			core.JSONError(w, core.DuplicateError("profile name"))
			return
		}
		if errors.Is(err, ErrLimitReached) {
			core.JSONError(w, core.ForbiddenError(
				"You have reached the maximum number of profiles allowed",
			))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, toResponse(profile))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	profileID := chi.URLParam(r, "profileID")

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	profile, err := h.service.Update(
		r.Context(),
		userID,
		profileID,
		req.Name,
		req.IsKids,
		req.Avatar,
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "profile")
			return
		}
		if errors.Is(err, core.ErrForbidden) {
			core.Forbidden(w, "cannot modify another user's profile")
			return
		}
		if errors.Is(err, ErrDuplicateName) {
			core.JSONError(w, core.DuplicateError("profile name"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, toResponse(profile))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	profileID := chi.URLParam(r, "profileID")

	if err := h.service.Delete(r.Context(), userID, profileID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "profile")
			return
		}
		if errors.Is(err, core.ErrForbidden) {
			core.Forbidden(w, "cannot delete another user's profile")
			return
		}
		if errors.Is(err, ErrLastProfile) {
			core.JSONError(w, core.ForbiddenError(
				"You cannot delete this profile. At least one profile must remain.",
			))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}
