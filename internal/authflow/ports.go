package authflow

import (
	"context"
	"time"
)

// User is the server-returned account record persisted into the session.
// Only the fields the vendor app actually reads are typed here.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	KYCStatus string `json:"kyc_status"`
}

// AccountResult is the outcome of a login or register call.
type AccountResult struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}

// RegisterParams carries the fields sent to the register endpoint.
type RegisterParams struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// AuthAPI is the remote auth service the flow drives. Implementations live
// in internal/remote; tests substitute fakes.
type AuthAPI interface {
	CheckUser(ctx context.Context, phone string) (bool, error)
	Login(ctx context.Context, phone string) (*AccountResult, error)
	Register(ctx context.Context, params RegisterParams) (*AccountResult, error)
	// SendOtp dispatches a one-time code to the identifier and returns the
	// code the flow must match against.
	SendOtp(ctx context.Context, channel Channel, identifier string) (string, error)
	SendLoginNotification(ctx context.Context, email, ip, device string) error
	SendRegisterNotification(ctx context.Context, email, name, ip, device string) error
}

// SessionStore is keyed durable storage for the logged-in user record.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// DeviceProbe supplies best-effort device provenance for audit notifications.
// PublicIP never fails; it returns a sentinel value instead.
type DeviceProbe interface {
	DeviceClass() string
	PublicIP(ctx context.Context) string
}

// Clock abstracts time so the resend countdown is testable.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }
