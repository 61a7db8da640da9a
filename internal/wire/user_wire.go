package wire

import (
	"sleeper-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

// wireUser registers the passwordless login route
func wireUser(r chi.Router, userHandler *adaptor.UserHandler) {
	r.Post("/auth/login", userHandler.Login)
}
