package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"florencia/src/helper/config"
	"florencia/src/services/catalog"
	"florencia/src/services/identity"
	"florencia/src/services/synchronization"
)

// Server representa o servidor HTTP da API
type Server struct {
	logger         *slog.Logger
	server         *http.Server
	mux            *http.ServeMux
	port           int
	identity       *identity.IdentityService
	profiles       *synchronization.ProfileRegistry
	catalog        *catalog.CatalogService
	catalogControl *synchronization.CatalogController
	settings       config.Catalog
	maxUploadBytes int64
}

func NewServer(
	logger *slog.Logger,
	port int,
	identityService *identity.IdentityService,
	profiles *synchronization.ProfileRegistry,
	catalogService *catalog.CatalogService,
	catalogControl *synchronization.CatalogController,
) *Server {
	server := &Server{
		mux:            http.NewServeMux(),
		port:           port,
		logger:         logger,
		identity:       identityService,
		profiles:       profiles,
		catalog:        catalogService,
		catalogControl: catalogControl,
		settings:       catalogService.Settings(),
		maxUploadBytes: 10 << 20,
	}

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      server.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Autenticação
	server.mux.HandleFunc("POST /v1/auth/sign-up", server.SignUp)
	server.mux.HandleFunc("POST /v1/auth/sign-in", server.SignIn)
	server.mux.HandleFunc("POST /v1/auth/sign-out", server.authenticated(server.SignOut))

	// Perfil
	server.mux.HandleFunc("GET /v1/profile", server.authenticated(server.GetProfile))
	server.mux.HandleFunc("PUT /v1/profile", server.authenticated(server.SaveProfile))
	server.mux.HandleFunc("POST /v1/profile/photo", server.authenticated(server.UploadProfilePhoto))

	// Catálogo
	server.mux.HandleFunc("GET /v1/products", server.authenticated(server.ListProducts))
	server.mux.HandleFunc("POST /v1/products", server.authenticated(server.AddProduct))
	server.mux.HandleFunc("PUT /v1/products/{id}", server.authenticated(server.EditProduct))
	server.mux.HandleFunc("DELETE /v1/products/{id}", server.authenticated(server.DeleteProduct))
	server.mux.HandleFunc("GET /v1/dashboard", server.authenticated(server.GetDashboard))

	return server
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start inicia o servidor HTTP
func (s *Server) Start() error {
	s.logger.Info("server started", "port", s.port)

	return s.server.ListenAndServe()
}

// Shutdown encerra o servidor HTTP de forma graciosa
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
