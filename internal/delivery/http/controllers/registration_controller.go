package controllers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"eventregistration/internal/delivery/http/helpers"
	"eventregistration/internal/delivery/http/middleware"
	"eventregistration/internal/domain"
)

// CreateRegistrationRequest is the request body for POST /api/registrations.
type CreateRegistrationRequest struct {
	EventID *int64 `json:"eventId"`
	UserID  *int64 `json:"userId"`
}

// Validate implements helpers.Validator. Range checks are left to the service.
func (c CreateRegistrationRequest) Validate() []string {
	var errs []string
	if c.EventID == nil {
		errs = append(errs, "eventId is required")
	}
	if c.UserID == nil {
		errs = append(errs, "userId is required")
	}
	return errs
}

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// Register godoc
// @Summary Register a user for an event
// @Description Verifies with the event service that the event exists, then creates a REGISTERED registration with a fresh ticket token.
// @Tags registrations
// @Accept json
// @Produce json
// @Param registration body CreateRegistrationRequest true "Event and user IDs"
// @Success 201 {object} domain.Registration
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or event_not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /api/registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	var req CreateRegistrationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	reg, err := c.Service.Register(r.Context(), *req.EventID, *req.UserID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, reg)
}

// List godoc
// @Summary List registrations
// @Description Lists registrations filtered by exactly one of userId, eventId or status. The result may be empty.
// @Tags registrations
// @Produce json
// @Param userId query int false "Owner user ID"
// @Param eventId query int false "Event ID"
// @Param status query string false "REGISTERED or CANCELLED"
// @Success 200 {array} domain.Registration
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/registrations [get]
func (c *RegistrationController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filters []string
	for _, name := range []string{"userId", "eventId", "status"} {
		if q.Has(name) {
			filters = append(filters, name)
		}
	}
	if len(filters) != 1 {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest,
			"exactly one of userId, eventId or status is required")
		return
	}

	var (
		regs []*domain.Registration
		err  error
	)
	switch filters[0] {
	case "userId":
		userID, ok := parseID(w, q.Get("userId"), "userId")
		if !ok {
			return
		}
		regs, err = c.Service.ListByUser(r.Context(), userID)
	case "eventId":
		eventID, ok := parseID(w, q.Get("eventId"), "eventId")
		if !ok {
			return
		}
		regs, err = c.Service.ListByEvent(r.Context(), eventID)
	case "status":
		status := domain.RegistrationStatus(strings.ToUpper(strings.TrimSpace(q.Get("status"))))
		regs, err = c.Service.ListByStatus(r.Context(), status)
	}
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, regs)
}

// GetByID godoc
// @Summary Get a registration by ID
// @Tags registrations
// @Produce json
// @Param id path int true "Registration ID"
// @Success 200 {object} domain.Registration
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/registrations/{id} [get]
func (c *RegistrationController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r.PathValue("id"), "id")
	if !ok {
		return
	}
	reg, err := c.Service.GetByID(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, reg)
}

// Cancel godoc
// @Summary Cancel a registration
// @Description Moves the registration to CANCELLED. Only the owner may cancel and a registration can be cancelled once.
// @Tags registrations
// @Produce json
// @Security UserIDHeader
// @Security BearerAuth
// @Param id path int true "Registration ID"
// @Success 200 {object} domain.Registration
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or already_cancelled"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/registrations/{id} [delete]
func (c *RegistrationController) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r.PathValue("id"), "id")
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing caller identity")
		return
	}
	reg, err := c.Service.Cancel(r.Context(), id, userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, reg)
}

// parseID parses a decimal ID and writes a 400 when it is not a number.
func parseID(w http.ResponseWriter, raw, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
