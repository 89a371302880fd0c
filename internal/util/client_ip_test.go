package util

import (
	"net/http/httptest"
	"testing"
)

func TestClientIPIgnoresHeadersFromUntrustedPeer(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("NewTrustedProxies: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/applications", nil)
	req.RemoteAddr = "198.51.100.10:44321"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")

	if got := ClientIP(req, trusted); got != "198.51.100.10" {
		t.Fatalf("ClientIP = %q, want the direct peer", got)
	}
	if got := ClientIP(req, nil); got != "198.51.100.10" {
		t.Fatalf("ClientIP with no allowlist = %q, want the direct peer", got)
	}
}

func TestClientIPWalksForwardedChain(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8", "192.168.1.10"})
	if err != nil {
		t.Fatalf("NewTrustedProxies: %v", err)
	}

	cases := []struct {
		name string
		xff  string
		want string
	}{
		{"single caller", "203.0.113.5", "203.0.113.5"},
		{"caller behind second proxy", "203.0.113.5, 10.0.0.10", "203.0.113.5"},
		{"spoofed prefix stops at first untrusted hop", "1.2.3.4, 203.0.113.5, 10.0.0.10", "203.0.113.5"},
		{"all hops trusted yields leftmost", "10.0.0.5, 10.0.0.10", "10.0.0.5"},
		{"garbage hops skipped", "not-an-ip, 203.0.113.5", "203.0.113.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/applications", nil)
			req.RemoteAddr = "10.0.0.20:44321"
			req.Header.Set("X-Forwarded-For", tc.xff)
			if got := ClientIP(req, trusted); got != tc.want {
				t.Fatalf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClientIPWithoutForwardedHeader(t *testing.T) {
	trusted, _ := NewTrustedProxies([]string{"10.0.0.0/8"})
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.RemoteAddr = "10.0.0.20:44321"
	if got := ClientIP(req, trusted); got != "10.0.0.20" {
		t.Fatalf("ClientIP = %q, want the peer itself", got)
	}
}

func TestNewTrustedProxiesValidation(t *testing.T) {
	if tp, err := NewTrustedProxies(nil); err != nil || tp != nil {
		t.Fatalf("empty list = (%v, %v), want (nil, nil)", tp, err)
	}
	if _, err := NewTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1"}); err != nil {
		t.Fatalf("valid entries rejected: %v", err)
	}
	if _, err := NewTrustedProxies([]string{"not-a-cidr"}); err == nil {
		t.Fatal("invalid entry accepted")
	}
}
