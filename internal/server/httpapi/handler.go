package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/complyvault/evidenced/internal/common"
	"github.com/complyvault/evidenced/internal/server/models"
	"github.com/complyvault/evidenced/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type evidenceResponse struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	EvidenceType       string     `json:"evidence_type"`
	Source             string     `json:"source"`
	UploadState        string     `json:"upload_state"`
	FilePath           string     `json:"file_path,omitempty"`
	FileSize           int64      `json:"file_size,omitempty"`
	MimeType           string     `json:"mime_type,omitempty"`
	CollectedAt        time.Time  `json:"collected_at"`
	ValidUntil         *time.Time `json:"valid_until,omitempty"`
	Validity           string     `json:"validity"`
	LinkedControlCount int        `json:"linked_control_count"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toEvidenceResponse(v *services.EvidenceView) evidenceResponse {
	return evidenceResponse{
		ID:                 v.ID,
		Title:              v.Title,
		Description:        v.Description,
		EvidenceType:       string(v.Type),
		Source:             string(v.Source),
		UploadState:        string(v.UploadState),
		FilePath:           v.FileKey,
		FileSize:           v.FileSize,
		MimeType:           v.MimeType,
		CollectedAt:        v.CollectedAt,
		ValidUntil:         v.ValidUntil,
		Validity:           string(v.Validity),
		LinkedControlCount: v.LinkedControlCount,
		CreatedAt:          v.CreatedAt,
		UpdatedAt:          v.UpdatedAt,
	}
}

// writeServiceError maps the coordinator's error taxonomy onto HTTP. The
// body always carries a machine-readable code so callers can tell "fix
// your input" from "transient, retry" from "state conflict, do not retry".
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "evidence not found")
	case errors.Is(err, common.ErrorNotAttached):
		writeError(w, http.StatusConflict, "NOT_ATTACHED", "evidence has no attached file")
	case errors.Is(err, common.ErrorInvalidCredential):
		writeError(w, http.StatusConflict, "INVALID_CREDENTIAL", "file key does not match issued credential")
	case errors.Is(err, common.ErrorConflict):
		writeError(w, http.StatusConflict, "CONFLICT", "conflicting evidence metadata")
	case errors.Is(err, common.ErrorUpstream):
		writeError(w, http.StatusBadGateway, "UPSTREAM", "storage gateway error")
	default:
		s.logger.Error(r.Context(), err.Error())
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title        string     `json:"title"`
		Description  string     `json:"description"`
		EvidenceType string     `json:"evidence_type"`
		Source       string     `json:"source"`
		CollectedAt  *time.Time `json:"collected_at"`
		ValidUntil   *time.Time `json:"valid_until"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}

	view, err := s.evidence.Create(r.Context(), services.CreateEvidenceParams{
		Title:       req.Title,
		Description: req.Description,
		Type:        models.EvidenceType(req.EvidenceType),
		Source:      models.Source(req.Source),
		CollectedAt: req.CollectedAt,
		ValidUntil:  req.ValidUntil,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEvidenceResponse(view))
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	evidenceID := chi.URLParam(r, "evidence_id")

	var req struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}

	cred, err := s.evidence.RequestUploadCredential(r.Context(), evidenceID, req.Filename, req.ContentType)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"upload_url": cred.URL,
		"file_key":   cred.Key,
		"expires_at": cred.ExpiresAt,
	})
}

func (s *Server) handleConfirmUpload(w http.ResponseWriter, r *http.Request) {
	evidenceID := chi.URLParam(r, "evidence_id")

	var req struct {
		FileKey  string `json:"file_key"`
		FileSize int64  `json:"file_size"`
		MimeType string `json:"mime_type"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}

	view, err := s.evidence.ConfirmUpload(r.Context(), evidenceID, req.FileKey, req.FileSize, req.MimeType)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toEvidenceResponse(view))
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	evidenceID := chi.URLParam(r, "evidence_id")

	cred, err := s.evidence.RequestDownloadCredential(r.Context(), evidenceID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"download_url": cred.URL,
		"expires_at":   cred.ExpiresAt,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	view, err := s.evidence.Get(r.Context(), chi.URLParam(r, "evidence_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toEvidenceResponse(view))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	filter := models.EvidenceFilter{
		Search: r.URL.Query().Get("search"),
		Type:   models.EvidenceType(r.URL.Query().Get("evidence_type")),
		Source: models.Source(r.URL.Query().Get("source")),
	}

	views, err := s.evidence.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	items := make([]evidenceResponse, 0, len(views))
	for _, v := range views {
		items = append(items, toEvidenceResponse(v))
	}

	writeJSON(w, http.StatusOK, map[string]any{"evidence": items})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.evidence.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	byType := make(map[string]int, len(stats.ByType))
	for t, n := range stats.ByType {
		byType[string(t)] = n
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":         stats.Total,
		"by_type":       byType,
		"expiring_soon": stats.ExpiringSoon,
		"expired":       stats.Expired,
	})
}
