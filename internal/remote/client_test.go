package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chefserve/chef-vendor/internal/authflow"
	"github.com/chefserve/chef-vendor/internal/remote"
)

func TestCheckUserEncodesQuery(t *testing.T) {
	var gotPath, gotPhone string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPhone = r.URL.Query().Get("phone")
		json.NewEncoder(w).Encode(map[string]bool{"exists": true})
	}))
	defer srv.Close()

	client := remote.NewClient(srv.URL)
	exists, err := client.CheckUser(context.Background(), "9876543210")
	if err != nil {
		t.Fatalf("check user: %v", err)
	}
	if !exists {
		t.Fatalf("expected exists=true")
	}
	if gotPath != "/v1/auth/check-user" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotPhone != "9876543210" {
		t.Fatalf("unexpected phone %q", gotPhone)
	}
}

func TestLoginSendsVendorRole(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(authflow.AccountResult{
			Success: true,
			User:    &authflow.User{ID: 7, Name: "Asha Kitchen", Email: "asha@example.com"},
		})
	}))
	defer srv.Close()

	client := remote.NewClient(srv.URL)
	res, err := client.Login(context.Background(), "9876543210")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.Success || res.User == nil || res.User.ID != 7 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if body["role"] != "Vendor" {
		t.Fatalf("expected Vendor role in payload, got %q", body["role"])
	}
	if body["phone"] != "9876543210" {
		t.Fatalf("expected phone in payload, got %q", body["phone"])
	}
}

func TestSendOtpPicksChannelField(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body = map[string]string{}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]string{"code": "4321"})
	}))
	defer srv.Close()

	client := remote.NewClient(srv.URL)

	code, err := client.SendOtp(context.Background(), authflow.ChannelPhone, "9876543210")
	if err != nil {
		t.Fatalf("send otp: %v", err)
	}
	if code != "4321" {
		t.Fatalf("expected code 4321, got %q", code)
	}
	if body["phone"] != "9876543210" || body["email"] != "" {
		t.Fatalf("expected phone-only payload, got %v", body)
	}

	if _, err := client.SendOtp(context.Background(), authflow.ChannelEmail, "chef@example.com"); err != nil {
		t.Fatalf("send otp email: %v", err)
	}
	if body["email"] != "chef@example.com" || body["phone"] != "" {
		t.Fatalf("expected email-only payload, got %v", body)
	}
}

func TestErrorResponsesAreSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many requests", "code": "RATE_LIMIT_EXCEEDED"})
	}))
	defer srv.Close()

	client := remote.NewClient(srv.URL)
	if _, err := client.SendOtp(context.Background(), authflow.ChannelPhone, "9876543210"); err == nil {
		t.Fatalf("expected an error for a 429 response")
	}
}

func TestNotificationFailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"success": false})
	}))
	defer srv.Close()

	client := remote.NewClient(srv.URL)
	if err := client.SendLoginNotification(context.Background(), "asha@example.com", "203.0.113.7", "Android Device"); err == nil {
		t.Fatalf("expected error when the service declines the notification")
	}
}
