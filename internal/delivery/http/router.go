package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventregistration/internal/delivery/http/controllers"
)

// NewRouter initializes the HTTP router with all application routes.
// requireCaller wraps the routes that act on behalf of a user.
func NewRouter(registrations *controllers.RegistrationController, requireCaller func(http.HandlerFunc) http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/registrations/health", controllers.Health)

	// Registrations
	mux.HandleFunc("POST /api/registrations", registrations.Register)
	mux.HandleFunc("GET /api/registrations", registrations.List)
	mux.HandleFunc("GET /api/registrations/{id}", registrations.GetByID)
	mux.HandleFunc("DELETE /api/registrations/{id}", requireCaller(registrations.Cancel))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
