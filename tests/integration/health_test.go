//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func assertHealthy(t *testing.T, path string) {
	t.Helper()

	resp := doGet(t, path)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d", path, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("GET %s: content type %q, want application/json", path, ct)
	}

	body := decodeJSON[healthResponse](t, resp)
	if body.Status != "ok" {
		t.Fatalf("GET %s: status %q, want ok", path, body.Status)
	}
	if len(body.Checks) != 0 {
		t.Errorf("GET %s: unexpected failing checks: %v", path, body.Checks)
	}
}

func TestLivez(t *testing.T) {
	assertHealthy(t, "/livez")
}

func TestReadyz(t *testing.T) {
	assertHealthy(t, "/readyz")
}
