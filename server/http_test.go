package server

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"media-registry/config"
	"media-registry/dto"
	"media-registry/service"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App:      config.App{Environment: "test"},
		Server:   config.Server{HttpPort: "0", Workers: 1, MaxUploadMB: 8},
		Database: config.Database{Driver: "sqlite", DSN: filepath.Join(dir, "data.db")},
		Storage: config.Storage{
			Backend: "local",
			Local:   config.Local{Dir: filepath.Join(dir, "uploads")},
		},
		Queue: &config.RabbitMQ{},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *dependencies) {
	t.Helper()
	ctx := context.Background()
	deps, err := newDependencies(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { deps.Close(ctx) })
	return newRouter(ctx, cfg, deps.blobs, service.NewRegistry(deps.blobs, deps.repo)), deps
}

func TestRouter_Health(t *testing.T) {
	r, _ := newTestRouter(t, testConfig(t))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_MetricsAfterUpload(t *testing.T) {
	r, _ := newTestRouter(t, testConfig(t))

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "clip.mp4")
	require.NoError(t, err)
	_, err = part.Write([]byte("frames"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/recordings", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "media_registry_operations_total")
}

func TestRouter_CORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t, testConfig(t))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/recordings", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewBlobStore_UnknownBackend(t *testing.T) {
	_, err := newBlobStore(context.Background(), config.Storage{Backend: "tape"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tape")
}

func TestNewDependencies_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := newDependencies(context.Background(), cfg)
	require.Error(t, err)
}

func TestRunAudit(t *testing.T) {
	cfg := testConfig(t)

	var out bytes.Buffer
	require.NoError(t, RunAudit(cfg, &out))
	var report dto.AuditReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 0, report.Checked)
	assert.Empty(t, report.Dangling)

	ctx := context.Background()
	deps, err := newDependencies(ctx, cfg)
	require.NoError(t, err)
	rec, err := service.NewRegistry(deps.blobs, deps.repo).Create(ctx, service.Upload{
		Body:         strings.NewReader("hello"),
		OriginalName: "a.wav",
		Size:         5,
	})
	require.NoError(t, err)
	deps.Close(ctx)
	require.NoError(t, os.Remove(filepath.Join(cfg.Storage.Local.Dir, rec.Filename)))

	out.Reset()
	err = RunAudit(cfg, &out)
	require.ErrorIs(t, err, ErrDanglingRows)
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 1, report.Checked)
	require.Len(t, report.Dangling, 1)
	assert.Equal(t, rec.ID, report.Dangling[0].ID)
}

func TestRunMigrate(t *testing.T) {
	cfg := testConfig(t)

	require.NoError(t, RunMigrate(cfg))
	require.NoError(t, RunMigrate(cfg))
	_, err := os.Stat(cfg.Database.DSN)
	assert.NoError(t, err)
}
