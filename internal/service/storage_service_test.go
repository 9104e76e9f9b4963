package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fadilmartias/exam-grader/internal/apperror"
	"github.com/fadilmartias/exam-grader/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, handler http.HandlerFunc) (*StorageService, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	svc := NewStorageService(&config.SupabaseConfig{
		URL:            srv.URL,
		Key:            "service-key",
		Bucket:         "submissions",
		SignedURLTTL:   7 * 24 * time.Hour,
		RequestTimeout: 5 * time.Second,
	}, zerolog.Nop())
	return svc, &hits
}

func TestResolveURLKeepsTokenURL(t *testing.T) {
	svc, hits := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ref := "https://proj.supabase.co/storage/v1/object/sign/submissions/a.pdf?token=abc"

	got, err := svc.ResolveURL(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, ref, got)
	assert.Zero(t, hits.Load())
}

func TestResolveURLMalformedMakesNoRequest(t *testing.T) {
	svc, hits := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, ref := range []string{
		"",
		"https://example.com/files/a.pdf",
		"https://proj.supabase.co/storage/v1/object/public/submissions",
		"/submissions/",
	} {
		_, err := svc.ResolveURL(context.Background(), ref)
		assert.ErrorIs(t, err, apperror.ErrMalformedReference, ref)
	}
	assert.Zero(t, hits.Load())
}

func TestResolveURLSignsObject(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		wantPath string
	}{
		{"public url", "https://proj.supabase.co/storage/v1/object/public/exams/u1/a.pdf", "/storage/v1/object/sign/exams/u1/a.pdf"},
		{"bare path with bucket", "submissions/u1/answer sheet.pdf", "/storage/v1/object/sign/submissions/u1/answer%20sheet.pdf"},
		{"bare path with slash", "/u1/a.pdf", "/storage/v1/object/sign/submissions/u1/a.pdf"},
		{"bare path containing token marker", "u1/token=abc.pdf", "/storage/v1/object/sign/submissions/u1/token=abc.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotKey, gotAuth string
			var body map[string]int
			svc, _ := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.EscapedPath()
				gotKey = r.Header.Get("apikey")
				gotAuth = r.Header.Get("Authorization")
				_ = json.NewDecoder(r.Body).Decode(&body)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"signedURL":"/object/sign/x/y.pdf?token=t0k"}`))
			})

			got, err := svc.ResolveURL(context.Background(), tt.ref)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPath, gotPath)
			assert.Equal(t, "service-key", gotKey)
			assert.Equal(t, "Bearer service-key", gotAuth)
			assert.Equal(t, 604800, body["expiresIn"])
			assert.Equal(t, svc.baseURL+"/storage/v1/object/sign/x/y.pdf?token=t0k", got)
		})
	}
}

func TestResolveURLSigningFailure(t *testing.T) {
	svc, _ := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Object not found"}`))
	})

	_, err := svc.ResolveURL(context.Background(), "u1/a.pdf")
	assert.ErrorIs(t, err, apperror.ErrSigningFailed)
}

func TestDownload(t *testing.T) {
	svc, _ := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.pdf" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Empty(t, r.Header.Get("apikey"))
		_, _ = w.Write([]byte("%PDF-1.4 body"))
	})
	dir := t.TempDir()

	dest := filepath.Join(dir, "ok.pdf")
	require.NoError(t, svc.Download(context.Background(), svc.baseURL+"/ok.pdf", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))

	missing := filepath.Join(dir, "missing.pdf")
	err = svc.Download(context.Background(), svc.baseURL+"/missing.pdf", missing)
	assert.ErrorIs(t, err, apperror.ErrNetwork)
	assert.NoFileExists(t, missing)
}
