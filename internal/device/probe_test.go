package device_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chefserve/chef-vendor/internal/device"
)

func TestPublicIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip":"203.0.113.7"}`))
	}))
	defer srv.Close()

	probe := device.NewProbeWithEndpoint(srv.URL, srv.Client())
	if got := probe.PublicIP(context.Background()); got != "203.0.113.7" {
		t.Fatalf("expected 203.0.113.7, got %q", got)
	}
}

func TestPublicIPFailsSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	probe := device.NewProbeWithEndpoint(srv.URL, srv.Client())
	if got := probe.PublicIP(context.Background()); got != device.UnknownIP {
		t.Fatalf("expected sentinel, got %q", got)
	}

	// Unreachable endpoint: still the sentinel, never an error.
	srv.Close()
	if got := probe.PublicIP(context.Background()); got != device.UnknownIP {
		t.Fatalf("expected sentinel for dead endpoint, got %q", got)
	}
}

func TestDeviceClassIsNonEmpty(t *testing.T) {
	probe := device.NewProbe()
	if probe.DeviceClass() == "" {
		t.Fatalf("device class must never be empty")
	}
}
