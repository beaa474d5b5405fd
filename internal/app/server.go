package app

import (
	"github.com/gorilla/mux"
	"rate-gate/internal/handlers"
	"rate-gate/internal/server"
)

// RunServer builds the HTTP handler stack and wraps it in a server
func (app *App) RunServer() *server.Server {
	h := handlers.New(app.Store, app.Limiter, app.Config)

	router := mux.NewRouter()
	SetupRoutes(router, h, app.Limiter)

	return server.New(router, app.Config.Port)
}
