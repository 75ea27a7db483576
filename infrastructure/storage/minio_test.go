package storage

import (
	"strings"
	"testing"
	"time"
)

func TestPublicBase(t *testing.T) {
	tests := []struct {
		endpoint, public string
		ssl              bool
		want             string
	}{
		{"minio:9000", "", false, "http://minio:9000"},
		{"minio:9000", "", true, "https://minio:9000"},
		{"minio:9000", "https://cdn.example.com/", false, "https://cdn.example.com"},
		{"minio:9000", "files.example.com", true, "https://files.example.com"},
	}
	for _, tt := range tests {
		if got := publicBase(tt.endpoint, tt.public, tt.ssl); got != tt.want {
			t.Errorf("publicBase(%q, %q, %v) = %q, want %q", tt.endpoint, tt.public, tt.ssl, got, tt.want)
		}
	}
}

func TestKeyRoundTrip(t *testing.T) {
	s := &MinIOStorage{bucketName: "incident-images", publicURL: "https://cdn.example.com"}

	key := objectKey("Photo.JPG", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if !strings.HasPrefix(key, "reports/2024-03-01/") || !strings.HasSuffix(key, ".jpg") {
		t.Fatalf("key = %q", key)
	}

	u := s.URLFor(key)
	if got := s.KeyFromURL(u); got != key {
		t.Errorf("KeyFromURL(%q) = %q, want %q", u, got, key)
	}
}

func TestKeyFromURLForeign(t *testing.T) {
	s := &MinIOStorage{bucketName: "incident-images"}
	if got := s.KeyFromURL("https://elsewhere.example.com/other/x.jpg"); got != "" {
		t.Errorf("foreign URL key = %q", got)
	}
	if got := s.KeyFromURL("/default.jpg"); got != "" {
		t.Errorf("default image key = %q", got)
	}
}
