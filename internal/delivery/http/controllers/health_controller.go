package controllers

import (
	"net/http"

	"eventregistration/internal/delivery/http/helpers"
)

// HealthResponse is the body of GET /api/registrations/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health godoc
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} controllers.HealthResponse
// @Router /api/registrations/health [get]
func Health(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, HealthResponse{Status: "UP", Service: "Registration Service"})
}
