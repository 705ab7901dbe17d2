package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chefserve/chef-vendor/internal/domain"
	"github.com/chefserve/chef-vendor/internal/http/response"
	"github.com/chefserve/chef-vendor/internal/service"
	"github.com/chefserve/chef-vendor/pkg/config"
	"github.com/chefserve/chef-vendor/pkg/logger"
)

// RateLimiter throttles per-key request windows. Implementations fail open.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Handlers struct {
	authService service.AuthService
	limiter     RateLimiter
	config      *config.Config
}

func New(authService service.AuthService, limiter RateLimiter, config *config.Config) *Handlers {
	return &Handlers{
		authService: authService,
		limiter:     limiter,
		config:      config,
	}
}

// Routes mounts the auth API under the given router.
func (h *Handlers) Routes(r chi.Router) {
	r.Route("/v1/auth", func(r chi.Router) {
		r.Get("/check-user", h.CheckUser)
		r.Post("/register", h.Register)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthRateLimit("login", 10))
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.AuthRateLimit("otp", 5))
			r.Post("/send-otp", h.SendOtp)
			r.Post("/verify-otp", h.VerifyOtp)
		})

		r.Post("/notify/login", h.NotifyLogin)
		r.Post("/notify/register", h.NotifyRegister)
	})
}

// AuthRateLimit throttles a route group per client IP.
func (h *Handlers) AuthRateLimit(name string, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := name + ":" + getClientIP(r)

			allowed, err := h.limiter.Allow(r.Context(), key, perMinute, time.Minute)
			if err != nil {
				logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err)
				// Allow request on error (fail open)
			} else if !allowed {
				response.RateLimit(w, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CheckUser reports whether a vendor account exists for a phone number
func (h *Handlers) CheckUser(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		response.BadRequest(w, "Missing phone parameter")
		return
	}

	exists, err := h.authService.CheckUser(r.Context(), phone)
	if err != nil {
		if strings.Contains(err.Error(), "validation failed") {
			response.BadRequest(w, err.Error())
			return
		}
		logger.ErrorContext(r.Context(), "Check user failed", "error", err)
		response.InternalError(w, "Failed to check account")
		return
	}

	response.WriteJSON(w, http.StatusOK, domain.CheckUserResponse{Exists: exists})
}

// Login authenticates an existing vendor by phone
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	res, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		if strings.Contains(err.Error(), "validation failed") {
			response.BadRequest(w, err.Error())
			return
		}
		logger.ErrorContext(r.Context(), "Login failed", "error", err)
		response.InternalError(w, "Login failed")
		return
	}

	response.WriteJSON(w, http.StatusOK, res)
}

// Register creates a vendor account
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	res, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		if strings.Contains(err.Error(), "validation failed") {
			response.BadRequest(w, err.Error())
			return
		}
		logger.ErrorContext(r.Context(), "Registration failed", "error", err)
		response.InternalError(w, "Registration failed")
		return
	}

	status := http.StatusCreated
	if !res.Success {
		status = http.StatusOK
	}
	response.WriteJSON(w, status, res)
}

// SendOtp issues a verification code for the requested channel
func (h *Handlers) SendOtp(w http.ResponseWriter, r *http.Request) {
	var req domain.SendOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	code, err := h.authService.SendOtp(r.Context(), &req)
	if err != nil {
		if strings.Contains(err.Error(), "validation failed") {
			response.BadRequest(w, err.Error())
			return
		}
		logger.ErrorContext(r.Context(), "OTP dispatch failed", "error", err)
		response.InternalError(w, "Failed to send verification code")
		return
	}

	response.WriteJSON(w, http.StatusOK, domain.SendOtpResponse{Code: code})
}

// VerifyOtp checks a submitted code
func (h *Handlers) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	valid, err := h.authService.VerifyOtp(r.Context(), &req)
	if err != nil {
		if strings.Contains(err.Error(), "validation failed") {
			response.BadRequest(w, err.Error())
			return
		}
		logger.ErrorContext(r.Context(), "OTP verification failed", "error", err)
		response.InternalError(w, "Failed to verify code")
		return
	}

	if !valid {
		response.WriteError(w, http.StatusUnauthorized, "Invalid or expired code", response.CodeOtpMismatch)
		return
	}

	response.WriteJSON(w, http.StatusOK, domain.VerifyOtpResponse{Valid: true})
}

// NotifyLogin emails a sign-in alert
func (h *Handlers) NotifyLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginNotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.authService.NotifyLogin(r.Context(), &req); err != nil {
		if strings.Contains(err.Error(), "validation failed") {
			response.BadRequest(w, err.Error())
			return
		}
		logger.WarnContext(r.Context(), "Login alert failed", "error", err)
		response.WriteJSON(w, http.StatusOK, domain.NotifyResponse{Success: false})
		return
	}

	response.WriteJSON(w, http.StatusOK, domain.NotifyResponse{Success: true})
}

// NotifyRegister emails the welcome message
func (h *Handlers) NotifyRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterNotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.authService.NotifyRegister(r.Context(), &req); err != nil {
		if strings.Contains(err.Error(), "validation failed") {
			response.BadRequest(w, err.Error())
			return
		}
		logger.WarnContext(r.Context(), "Welcome email failed", "error", err)
		response.WriteJSON(w, http.StatusOK, domain.NotifyResponse{Success: false})
		return
	}

	response.WriteJSON(w, http.StatusOK, domain.NotifyResponse{Success: true})
}

func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
