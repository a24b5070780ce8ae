// Package httpapi exposes the upload coordinator over REST. Wire framing
// lives here; all protocol decisions are made by the services layer.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/complyvault/evidenced/internal/logging"
	"github.com/complyvault/evidenced/internal/server/models"
	"github.com/complyvault/evidenced/internal/server/services"
	"github.com/complyvault/evidenced/internal/server/storage"
	"github.com/go-chi/chi/v5"
)

// EvidenceCoordinator is the slice of the services layer the REST surface
// depends on. *services.EvidenceService satisfies it.
type EvidenceCoordinator interface {
	Create(ctx context.Context, p services.CreateEvidenceParams) (*services.EvidenceView, error)
	RequestUploadCredential(ctx context.Context, evidenceID, filename, contentType string) (*storage.Credential, error)
	ConfirmUpload(ctx context.Context, evidenceID, fileKey string, fileSize int64, mimeType string) (*services.EvidenceView, error)
	RequestDownloadCredential(ctx context.Context, evidenceID string) (*storage.Credential, error)
	Get(ctx context.Context, evidenceID string) (*services.EvidenceView, error)
	List(ctx context.Context, filter models.EvidenceFilter) ([]*services.EvidenceView, error)
	Stats(ctx context.Context) (*services.EvidenceStats, error)
}

type Server struct {
	address   string
	evidence  EvidenceCoordinator
	logger    logging.Logger
	jwtSecret []byte
}

func NewServer(address string, l logging.Logger, es EvidenceCoordinator, secretKey string) *Server {
	return &Server{
		address:   address,
		logger:    l.With("module", "http_server"),
		evidence:  es,
		jwtSecret: []byte(secretKey),
	}
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/api/evidence", func(api chi.Router) {
		api.Use(s.authMiddleware)

		api.Post("/", s.handleCreate)
		api.Get("/", s.handleList)
		api.Get("/stats", s.handleStats)
		api.Get("/{evidence_id}", s.handleGet)
		api.Post("/{evidence_id}/upload-url", s.handleUploadURL)
		api.Post("/{evidence_id}/confirm-upload", s.handleConfirmUpload)
		api.Get("/{evidence_id}/download-url", s.handleDownloadURL)
	})

	return r
}

// Run serves the REST API until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
