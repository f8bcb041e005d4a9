// DamifeZion | 2026
// handler.go

package plan

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

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
	r.Route("/plans", func(r chi.Router) {
		r.Get("/", h.ListCatalog)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", h.GetMyPlan)
			r.Post("/change", h.ChangePlan)
		})
	})
}

// ListCatalog serves the static tier table; no auth required.
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	core.OK(w, CatalogResponse{Plans: Catalog()})
}

func (h *Handler) GetMyPlan(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	p, err := h.service.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "plan")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, toResponse(p, time.Now()))
}

func (h *Handler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	var req ChangePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	p, err := h.service.ChangePlan(r.Context(), userID, req.Name, req.Duration)
	if err != nil {
		if errors.Is(err, ErrUnknownPlan) {
			core.BadRequest(w, "unknown plan name")
			return
		}
		if errors.Is(err, ErrNoActivePlan) {
			core.JSONError(w, core.ForbiddenError(
				"User does not have an active plan.",
			))
			return
		}
		if errors.Is(err, ErrNoChange) {
			core.JSONError(w, core.NewAppError(
				ErrNoChange,
				"you are already subscribed to this plan",
				http.StatusConflict,
				"PLAN_UNCHANGED",
			))
			return
		}
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, toResponse(p, time.Now()))
}
