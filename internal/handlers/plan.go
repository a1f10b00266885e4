package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diet-horizon/apiserver/internal/services"
	"github.com/diet-horizon/apiserver/internal/store"
	"github.com/diet-horizon/apiserver/types"
)

// PlanHandler serves diet and workout plans. The same handler is mounted
// twice with a fixed kind, so the route tree stays flat.
type PlanHandler struct {
	planService *services.PlanService
	kind        string
}

func NewPlanHandler(planService *services.PlanService, kind string) *PlanHandler {
	return &PlanHandler{planService: planService, kind: kind}
}

// PlanRouter registers plan routes for one plan kind. All routes require
// authentication; assignment and mutation additionally require the
// trainer or admin role.
func PlanRouter(
	r chi.Router,
	planService *services.PlanService,
	userService *services.UserService,
	kind string,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewPlanHandler(planService, kind)
	trainerOnly := RequireRole(userService, types.RoleTrainer, types.RoleAdmin)

	r.Use(authMiddleware)
	r.Get("/", handler.ListPlans)
	r.With(trainerOnly).Post("/", handler.AssignPlan)
	r.Route("/{planID}", func(r chi.Router) {
		r.With(trainerOnly).Put("/", handler.UpdatePlan)
		r.With(trainerOnly).Delete("/", handler.DeletePlan)
	})
}

// TrainerRouter registers the trainer's client roster routes.
func TrainerRouter(
	r chi.Router,
	planService *services.PlanService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewPlanHandler(planService, "")

	r.Use(authMiddleware)
	r.Use(RequireRole(userService, types.RoleTrainer, types.RoleAdmin))
	r.Get("/clients", handler.ListClients)
	r.Get("/clients/{clientID}", handler.GetClient)
}

func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	callerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	role := roleFromContext(r.Context())

	plans, err := h.planService.ListFor(r.Context(), h.kind, callerID, role)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list plans")
		return
	}

	writeJSON(w, http.StatusOK, PlanListResponse{Success: true, Count: len(plans), Data: plans})
}

func (h *PlanHandler) AssignPlan(w http.ResponseWriter, r *http.Request) {
	callerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req AssignPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := h.planService.Assign(r.Context(), types.Plan{
		Kind:        h.kind,
		UserID:      req.UserID,
		TrainerID:   callerID,
		Title:       req.Title,
		Description: req.Description,
		Entries:     req.Entries,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "client not found")
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to assign plan")
		}
		return
	}

	writeJSON(w, http.StatusCreated, PlanResponse{Success: true, Data: plan})
}

func (h *PlanHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	callerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	role := roleFromContext(r.Context())

	planID, err := parsePlanID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req AssignPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := h.planService.Update(r.Context(), callerID, role, types.Plan{
		ID:          planID,
		Title:       req.Title,
		Description: req.Description,
		Entries:     req.Entries,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "plan not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, err.Error())
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update plan")
		}
		return
	}

	writeJSON(w, http.StatusOK, PlanResponse{Success: true, Data: plan})
}

func (h *PlanHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	callerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	role := roleFromContext(r.Context())

	planID, err := parsePlanID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.planService.Delete(r.Context(), callerID, role, planID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "plan not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete plan")
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "plan deleted"})
}

func (h *PlanHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	callerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	clients, err := h.planService.Clients(r.Context(), callerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list clients")
		return
	}

	writeJSON(w, http.StatusOK, ClientListResponse{Success: true, Count: len(clients), Data: clients})
}

func (h *PlanHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	callerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	clientID, err := strconv.Atoi(chi.URLParam(r, "clientID"))
	if err != nil || clientID < 1 {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}

	detail, err := h.planService.Client(r.Context(), callerID, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "client not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch client")
		return
	}

	writeJSON(w, http.StatusOK, ClientDetailResponse{Success: true, Data: detail})
}

// AssignPlanRequest is the payload for creating or updating a plan. The
// user field is ignored on update.
type AssignPlanRequest struct {
	UserID      int               `json:"user"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Entries     []types.PlanEntry `json:"entries"`
}

type PlanResponse struct {
	Success bool       `json:"success"`
	Data    types.Plan `json:"data"`
}

type PlanListResponse struct {
	Success bool         `json:"success"`
	Count   int          `json:"count"`
	Data    []types.Plan `json:"data"`
}

type ClientListResponse struct {
	Success bool                `json:"success"`
	Count   int                 `json:"count"`
	Data    []types.UserSummary `json:"data"`
}

type ClientDetailResponse struct {
	Success bool                  `json:"success"`
	Data    services.ClientDetail `json:"data"`
}

func parsePlanID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "planID"))
	if err != nil || id < 1 {
		return 0, errors.New("invalid plan id")
	}
	return id, nil
}
