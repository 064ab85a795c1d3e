package httpapi

import (
	"net/http"
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc123", "abc123", true},
		{"bearer abc123", "abc123", true},
		{"  Bearer   abc123  ", "abc123", true},
		{"", "", false},
		{"Bearer ", "", false},
		{"Basic abc123", "", false},
		{"abc123", "", false},
	}
	for _, tc := range cases {
		token, err := extractBearerToken(tc.header)
		if tc.ok && (err != nil || token != tc.token) {
			t.Fatalf("header %q: got %q, %v", tc.header, token, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("header %q: expected error", tc.header)
		}
	}
}

func TestProtectedPathsRejectAnonymous(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/locks", "/logs", "/auth/verify"} {
		resp := s.do(t, http.MethodGet, path, "", nil)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: %d %s", path, resp.Code, resp.Body.String())
		}
	}

	resp := s.do(t, http.MethodGet, "/locks", "not-a-jwt", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d %s", resp.Code, resp.Body.String())
	}
}

func TestPublicPathsSkipAuthentication(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz", "/info", "/metrics"} {
		resp := s.do(t, http.MethodGet, path, "", nil)
		if resp.Code == http.StatusUnauthorized {
			t.Fatalf("%s should be public, got 401", path)
		}
	}
}
