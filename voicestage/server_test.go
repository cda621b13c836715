package voicestage

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, fake *fakeSynthesizer) (*Server, *Workspace) {
	t.Helper()
	reg, err := NewRegistry(map[string]string{
		"Krishna": "charon",
		"Radha":   "kore",
	})
	require.NoError(t, err)
	ws := NewWorkspace(filepath.Join(t.TempDir(), "voice_overs"))
	factory := func(ctx context.Context, cfg Config) (Synthesizer, error) {
		return fake, nil
	}
	return NewServer(Config{Model: defaultModel}, reg, ws, factory), ws
}

func scriptUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("script", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestServerIndex(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSynthesizer{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Waiting for script...")
	assert.Contains(t, rec.Body.String(), "Generate Voice-over")
}

func TestServerGenerate(t *testing.T) {
	srv, ws := newTestServer(t, &fakeSynthesizer{})
	body, contentType := scriptUpload(t, "play.txt", "Krishna: Hello world\nRadha: [softly] Hi there")

	req := httptest.NewRequest(http.MethodPost, "/generate", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Generated)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Artifacts, 2)
	assert.Equal(t, "001_Krishna.wav", result.Artifacts[0].Filename)

	clip, err := os.ReadFile(filepath.Join(ws.Dir(), "002_Radha.wav"))
	require.NoError(t, err)
	assert.NotEmpty(t, clip)
}

func TestServerGenerateRendersHTMLReport(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSynthesizer{})
	body, contentType := scriptUpload(t, "play.txt", "Krishna: Hello [waving] world\nbad line")

	req := httptest.NewRequest(http.MethodPost, "/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	html := rec.Body.String()
	assert.Contains(t, html, "Processed 2 lines. Generated 1 files.")
	assert.Contains(t, html, "Line 2 (Format Error)")
	// Results pair the original, uncleaned text with its clip.
	assert.Contains(t, html, "Hello [waving] world")
	assert.Contains(t, html, "/clips/001_Krishna.wav")
}

func TestServerGenerateWithoutFile(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSynthesizer{})
	req := httptest.NewRequest(http.MethodPost, "/generate", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no script file uploaded")
}

func TestServerGenerateWrongExtension(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSynthesizer{})
	body, contentType := scriptUpload(t, "play.pdf", "Krishna: hi")

	req := httptest.NewRequest(http.MethodPost, "/generate", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid file type")
}

func TestServerGenerateProviderInitFailure(t *testing.T) {
	reg, err := NewRegistry(map[string]string{"Krishna": "charon"})
	require.NoError(t, err)
	ws := NewWorkspace(t.TempDir())
	srv := NewServer(Config{}, reg, ws, newGeminiSynthesizer)

	body, contentType := scriptUpload(t, "play.txt", "Krishna: hi")
	req := httptest.NewRequest(http.MethodPost, "/generate", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "configuration error")
}

func TestServerClear(t *testing.T) {
	srv, ws := newTestServer(t, &fakeSynthesizer{})
	require.NoError(t, ws.Ensure())
	for _, name := range []string{"001_A.wav", "002_B.wav"} {
		require.NoError(t, os.WriteFile(filepath.Join(ws.Dir(), name), []byte("riff"), 0644))
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/clear", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cleared 2 files.")
}

func TestServerClearMissingDir(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSynthesizer{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/clear", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Output directory does not exist.")
}

func TestServerVoices(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSynthesizer{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/voices", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var list []castItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, castItem{Character: "Krishna", Voice: "charon"}, list[0])
	assert.Equal(t, castItem{Character: "Radha", Voice: "kore"}, list[1])
}

func TestServerHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSynthesizer{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
	assert.Contains(t, rec.Body.String(), defaultModel)
}

func TestServerServesClips(t *testing.T) {
	srv, ws := newTestServer(t, &fakeSynthesizer{})
	require.NoError(t, ws.Ensure())
	require.NoError(t, os.WriteFile(filepath.Join(ws.Dir(), "001_Krishna.wav"), []byte("RIFF"), 0644))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clips/001_Krishna.wav", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "RIFF", rec.Body.String())
}
