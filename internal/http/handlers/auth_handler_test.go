package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chefserve/chef-vendor/internal/domain"
	"github.com/chefserve/chef-vendor/internal/http/handlers"
	"github.com/chefserve/chef-vendor/pkg/config"
)

type fakeAuthService struct {
	exists    bool
	loginRes  *domain.AuthResponse
	otpCode   string
	otpValid  bool
	notifyErr error
}

func (f *fakeAuthService) CheckUser(_ context.Context, phone string) (bool, error) {
	return f.exists, nil
}

func (f *fakeAuthService) Login(_ context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return f.loginRes, nil
}

func (f *fakeAuthService) Register(_ context.Context, req *domain.CreateUserRequest) (*domain.AuthResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return f.loginRes, nil
}

func (f *fakeAuthService) SendOtp(_ context.Context, req *domain.SendOtpRequest) (string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	return f.otpCode, nil
}

func (f *fakeAuthService) VerifyOtp(_ context.Context, req *domain.VerifyOtpRequest) (bool, error) {
	return f.otpValid, nil
}

func (f *fakeAuthService) NotifyLogin(_ context.Context, req *domain.LoginNotifyRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return f.notifyErr
}

func (f *fakeAuthService) NotifyRegister(_ context.Context, req *domain.RegisterNotifyRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return f.notifyErr
}

type fakeLimiter struct {
	denyKeys map[string]bool
	keys     []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	if f.denyKeys[key] {
		return false, nil
	}
	return true, nil
}

func newTestServer(svc *fakeAuthService, limiter *fakeLimiter) *httptest.Server {
	h := handlers.New(svc, limiter, &config.Config{})
	r := chi.NewRouter()
	h.Routes(r)
	return httptest.NewServer(r)
}

func TestCheckUserEndpoint(t *testing.T) {
	svc := &fakeAuthService{exists: true}
	srv := newTestServer(svc, &fakeLimiter{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/auth/check-user?phone=9876543210")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body domain.CheckUserResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if !body.Exists {
		t.Fatalf("expected exists=true")
	}

	// Missing phone is a 400.
	resp, _ = http.Get(srv.URL + "/v1/auth/check-user")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing phone, got %d", resp.StatusCode)
	}
}

func TestSendOtpEndpoint(t *testing.T) {
	svc := &fakeAuthService{otpCode: "4321"}
	srv := newTestServer(svc, &fakeLimiter{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/auth/send-otp", "application/json",
		strings.NewReader(`{"email":"asha@example.com"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body domain.SendOtpResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Code != "4321" {
		t.Fatalf("expected code in response, got %q", body.Code)
	}
}

func TestSendOtpValidation(t *testing.T) {
	srv := newTestServer(&fakeAuthService{otpCode: "4321"}, &fakeLimiter{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/auth/send-otp", "application/json",
		strings.NewReader(`{"phone":"12345"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a short phone, got %d", resp.StatusCode)
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["code"] != "INVALID_INPUT" {
		t.Fatalf("expected INVALID_INPUT code, got %v", body)
	}
}

func TestOtpRateLimitReturns429(t *testing.T) {
	limiter := &fakeLimiter{denyKeys: map[string]bool{"otp:1.2.3.4": true}}
	srv := newTestServer(&fakeAuthService{otpCode: "4321"}, limiter)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/auth/send-otp",
		strings.NewReader(`{"email":"asha@example.com"}`))
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["code"] != "RATE_LIMIT_EXCEEDED" {
		t.Fatalf("expected rate limit code, got %v", body)
	}
}

func TestLoginEndpoint(t *testing.T) {
	svc := &fakeAuthService{loginRes: &domain.AuthResponse{
		Success: true,
		User:    &domain.UserInfo{ID: 42, Name: "Asha Kitchen", Role: domain.RoleVendor},
	}}
	srv := newTestServer(svc, &fakeLimiter{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/auth/login", "application/json",
		strings.NewReader(`{"phone":"9876543210","role":"Vendor"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var body domain.AuthResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if !body.Success || body.User == nil || body.User.ID != 42 {
		t.Fatalf("unexpected response: %+v", body)
	}
}

func TestVerifyOtpMismatch(t *testing.T) {
	srv := newTestServer(&fakeAuthService{otpValid: false}, &fakeLimiter{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/auth/verify-otp", "application/json",
		strings.NewReader(`{"email":"asha@example.com","code":"0000"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a wrong code, got %d", resp.StatusCode)
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["code"] != "OTP_MISMATCH" {
		t.Fatalf("expected OTP_MISMATCH, got %v", body)
	}
}

func TestNotifyLoginReportsSoftFailure(t *testing.T) {
	svc := &fakeAuthService{notifyErr: context.DeadlineExceeded}
	srv := newTestServer(svc, &fakeLimiter{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/auth/notify/login", "application/json",
		strings.NewReader(`{"email":"asha@example.com","ip":"203.0.113.7","device":"Android Device"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("notification failures stay 200, got %d", resp.StatusCode)
	}

	var body domain.NotifyResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Success {
		t.Fatalf("expected success=false when the mailer fails")
	}
}
