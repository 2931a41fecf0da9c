package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore("http://localhost:8080/assets/")
	url, err := s.Put(context.Background(), "logos/u/a.png", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/assets/logos/u/a.png", url)

	ct, data, ok := s.Get("logos/u/a.png")
	require.True(t, ok)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, []byte("png"), data)

	require.NoError(t, s.Delete(context.Background(), "logos/u/a.png"))
	_, _, ok = s.Get("logos/u/a.png")
	assert.False(t, ok)
}

func TestMemoryStoreServesObjects(t *testing.T) {
	s := NewMemoryStore("/uploads")
	_, err := s.Put(context.Background(), "logos/u/a.svg", "image/svg+xml", []byte("<svg/>"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logos/u/a.svg", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<svg/>", rec.Body.String())

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logos/u/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{"aws", S3Config{Bucket: "logos", Region: "eu-west-3"}, "https://logos.s3.eu-west-3.amazonaws.com"},
		{"endpoint", S3Config{Bucket: "logos", Endpoint: "http://minio:9000/"}, "http://minio:9000/logos"},
		{"override", S3Config{Bucket: "logos", Endpoint: "http://minio:9000", PublicBaseURL: "https://cdn.example.com"}, "https://cdn.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, publicBaseURL(tt.cfg))
		})
	}
}
