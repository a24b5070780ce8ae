package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/complyvault/evidenced/internal/common"
	"github.com/complyvault/evidenced/internal/logging"
	"github.com/complyvault/evidenced/internal/server/auth"
	"github.com/complyvault/evidenced/internal/server/models"
	"github.com/complyvault/evidenced/internal/server/services"
	"github.com/complyvault/evidenced/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeCoordinator struct {
	createFn   func(ctx context.Context, p services.CreateEvidenceParams) (*services.EvidenceView, error)
	uploadFn   func(ctx context.Context, id, filename, contentType string) (*storage.Credential, error)
	confirmFn  func(ctx context.Context, id, fileKey string, fileSize int64, mimeType string) (*services.EvidenceView, error)
	downloadFn func(ctx context.Context, id string) (*storage.Credential, error)
	getFn      func(ctx context.Context, id string) (*services.EvidenceView, error)
	listFn     func(ctx context.Context, filter models.EvidenceFilter) ([]*services.EvidenceView, error)
	statsFn    func(ctx context.Context) (*services.EvidenceStats, error)
}

func (f *fakeCoordinator) Create(ctx context.Context, p services.CreateEvidenceParams) (*services.EvidenceView, error) {
	return f.createFn(ctx, p)
}
func (f *fakeCoordinator) RequestUploadCredential(ctx context.Context, id, filename, contentType string) (*storage.Credential, error) {
	return f.uploadFn(ctx, id, filename, contentType)
}
func (f *fakeCoordinator) ConfirmUpload(ctx context.Context, id, fileKey string, fileSize int64, mimeType string) (*services.EvidenceView, error) {
	return f.confirmFn(ctx, id, fileKey, fileSize, mimeType)
}
func (f *fakeCoordinator) RequestDownloadCredential(ctx context.Context, id string) (*storage.Credential, error) {
	return f.downloadFn(ctx, id)
}
func (f *fakeCoordinator) Get(ctx context.Context, id string) (*services.EvidenceView, error) {
	return f.getFn(ctx, id)
}
func (f *fakeCoordinator) List(ctx context.Context, filter models.EvidenceFilter) ([]*services.EvidenceView, error) {
	return f.listFn(ctx, filter)
}
func (f *fakeCoordinator) Stats(ctx context.Context) (*services.EvidenceStats, error) {
	return f.statsFn(ctx)
}

func newTestServer(t *testing.T, fc *fakeCoordinator) *httptest.Server {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := NewServer(":0", logger, fc, testSecret)
	ts := httptest.NewServer(s.router())
	t.Cleanup(ts.Close)
	return ts
}

func authedRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)

	token, err := auth.GenerateToken("user-1", []byte(testSecret), time.Minute)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var body map[string]any
	if resp.ContentLength != 0 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func sampleView(id string) *services.EvidenceView {
	return &services.EvidenceView{
		Evidence: models.Evidence{
			ID:          id,
			Title:       "SOC2 audit log",
			Type:        models.TypeLog,
			Source:      models.SourceAWS,
			UploadState: models.StatePending,
			CollectedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		Validity: "no_expiry",
	}
}

func TestAuth_MissingToken(t *testing.T) {
	ts := newTestServer(t, &fakeCoordinator{})

	resp, err := http.Get(ts.URL + "/api/evidence")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_BadToken(t *testing.T) {
	ts := newTestServer(t, &fakeCoordinator{})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/evidence", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer garbage")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealth_NoAuthRequired(t *testing.T) {
	ts := newTestServer(t, &fakeCoordinator{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleCreate(t *testing.T) {
	fc := &fakeCoordinator{
		createFn: func(ctx context.Context, p services.CreateEvidenceParams) (*services.EvidenceView, error) {
			if p.Title == "" {
				return nil, common.ErrorValidation
			}
			v := sampleView("id-1")
			v.Title = p.Title
			return v, nil
		},
	}
	ts := newTestServer(t, fc)

	t.Run("created", func(t *testing.T) {
		req := authedRequest(t, http.MethodPost, ts.URL+"/api/evidence", map[string]any{
			"title":         "SOC2 audit log",
			"evidence_type": "log",
			"source":        "aws",
		})
		resp, body := do(t, req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "id-1", body["id"])
		assert.Equal(t, "no_expiry", body["validity"])
	})

	t.Run("validation error maps to 400", func(t *testing.T) {
		req := authedRequest(t, http.MethodPost, ts.URL+"/api/evidence", map[string]any{
			"evidence_type": "log",
			"source":        "aws",
		})
		resp, body := do(t, req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		errObj := body["error"].(map[string]any)
		assert.Equal(t, "VALIDATION", errObj["code"])
	})

	t.Run("malformed json maps to 400", func(t *testing.T) {
		req := authedRequest(t, http.MethodPost, ts.URL+"/api/evidence", nil)
		req.Body = io.NopCloser(bytes.NewBufferString("{nope"))
		resp, _ := do(t, req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleUploadURL(t *testing.T) {
	expires := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	fc := &fakeCoordinator{
		uploadFn: func(ctx context.Context, id, filename, contentType string) (*storage.Credential, error) {
			if id == "ghost" {
				return nil, common.ErrorNotFound
			}
			return &storage.Credential{
				URL:       "https://signed.example/put",
				Key:       "evidence/" + id + "/" + filename,
				ExpiresAt: expires,
			}, nil
		},
	}
	ts := newTestServer(t, fc)

	t.Run("issues credential", func(t *testing.T) {
		req := authedRequest(t, http.MethodPost, ts.URL+"/api/evidence/id-1/upload-url", map[string]any{
			"filename":     "report.pdf",
			"content_type": "application/pdf",
		})
		resp, body := do(t, req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "https://signed.example/put", body["upload_url"])
		assert.Equal(t, "evidence/id-1/report.pdf", body["file_key"])
		assert.NotEmpty(t, body["expires_at"])
	})

	t.Run("unknown id maps to 404", func(t *testing.T) {
		req := authedRequest(t, http.MethodPost, ts.URL+"/api/evidence/ghost/upload-url", map[string]any{
			"filename": "report.pdf", "content_type": "application/pdf",
		})
		resp, body := do(t, req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		errObj := body["error"].(map[string]any)
		assert.Equal(t, "NOT_FOUND", errObj["code"])
	})
}

func TestHandleConfirmUpload_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "invalid credential", err: common.ErrorInvalidCredential, wantStatus: http.StatusConflict, wantCode: "INVALID_CREDENTIAL"},
		{name: "conflict", err: common.ErrorConflict, wantStatus: http.StatusConflict, wantCode: "CONFLICT"},
		{name: "upstream", err: common.ErrorUpstream, wantStatus: http.StatusBadGateway, wantCode: "UPSTREAM"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fc := &fakeCoordinator{
				confirmFn: func(ctx context.Context, id, fileKey string, fileSize int64, mimeType string) (*services.EvidenceView, error) {
					return nil, tc.err
				},
			}
			ts := newTestServer(t, fc)

			req := authedRequest(t, http.MethodPost, ts.URL+"/api/evidence/id-1/confirm-upload", map[string]any{
				"file_key": "k1", "file_size": 2048, "mime_type": "text/plain",
			})
			resp, body := do(t, req)

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			errObj := body["error"].(map[string]any)
			assert.Equal(t, tc.wantCode, errObj["code"])
		})
	}
}

func TestHandleConfirmUpload_Success(t *testing.T) {
	fc := &fakeCoordinator{
		confirmFn: func(ctx context.Context, id, fileKey string, fileSize int64, mimeType string) (*services.EvidenceView, error) {
			v := sampleView(id)
			v.UploadState = models.StateAttached
			v.FileKey = fileKey
			v.FileSize = fileSize
			v.MimeType = mimeType
			return v, nil
		},
	}
	ts := newTestServer(t, fc)

	req := authedRequest(t, http.MethodPost, ts.URL+"/api/evidence/id-1/confirm-upload", map[string]any{
		"file_key": "k1", "file_size": 2048, "mime_type": "text/plain",
	})
	resp, body := do(t, req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "k1", body["file_path"])
	assert.Equal(t, float64(2048), body["file_size"])
	assert.Equal(t, "text/plain", body["mime_type"])
}

func TestHandleDownloadURL_NotAttached(t *testing.T) {
	fc := &fakeCoordinator{
		downloadFn: func(ctx context.Context, id string) (*storage.Credential, error) {
			return nil, common.ErrorNotAttached
		},
	}
	ts := newTestServer(t, fc)

	req := authedRequest(t, http.MethodGet, ts.URL+"/api/evidence/id-1/download-url", nil)
	resp, body := do(t, req)

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "NOT_ATTACHED", errObj["code"])
}

func TestHandleList_PassesFilter(t *testing.T) {
	var gotFilter models.EvidenceFilter
	fc := &fakeCoordinator{
		listFn: func(ctx context.Context, filter models.EvidenceFilter) ([]*services.EvidenceView, error) {
			gotFilter = filter
			return []*services.EvidenceView{sampleView("id-1")}, nil
		},
	}
	ts := newTestServer(t, fc)

	req := authedRequest(t, http.MethodGet, ts.URL+"/api/evidence?search=audit&evidence_type=log&source=aws", nil)
	resp, body := do(t, req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.EvidenceFilter{Search: "audit", Type: models.TypeLog, Source: models.SourceAWS}, gotFilter)

	items := body["evidence"].([]any)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	assert.Equal(t, "id-1", first["id"])
}

func TestHandleStats(t *testing.T) {
	fc := &fakeCoordinator{
		statsFn: func(ctx context.Context) (*services.EvidenceStats, error) {
			return &services.EvidenceStats{
				Total:        4,
				ByType:       map[models.EvidenceType]int{models.TypeLog: 2, models.TypeDocument: 2},
				ExpiringSoon: 1,
				Expired:      1,
			}, nil
		},
	}
	ts := newTestServer(t, fc)

	req := authedRequest(t, http.MethodGet, ts.URL+"/api/evidence/stats", nil)
	resp, body := do(t, req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(4), body["total"])
	assert.Equal(t, float64(1), body["expiring_soon"])
	assert.Equal(t, float64(1), body["expired"])

	byType := body["by_type"].(map[string]any)
	assert.Equal(t, float64(2), byType["log"])
}
