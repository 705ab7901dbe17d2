package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// RoleVendor is the only role the vendor app signs in with. The wire value
// is capitalized for compatibility with existing mobile clients.
const RoleVendor = "Vendor"

// KYC review states a vendor account moves through before it can list menus.
const (
	KYCPending   = "pending"
	KYCSubmitted = "submitted"
	KYCApproved  = "approved"
	KYCRejected  = "rejected"
)

type User struct {
	ID           int64     `json:"id"`
	Role         string    `json:"role"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	KYCStatus    string    `json:"kyc_status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserInfo is the public projection returned to clients after auth.
type UserInfo struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	KYCStatus string `json:"kyc_status"`
}

func (u *User) Info() *UserInfo {
	return &UserInfo{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		KYCStatus: u.KYCStatus,
	}
}

var (
	emailRe     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nonDigitsRe = regexp.MustCompile(`\D`)
)

// PhoneDigits is the exact length an Indian mobile number carries after
// formatting characters are stripped.
const PhoneDigits = 10

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

func (r *CreateUserRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = nonDigitsRe.ReplaceAllString(r.Phone, "")
	if r.Role == "" {
		r.Role = RoleVendor
	}
}

func (r *CreateUserRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if !emailRe.MatchString(r.Email) {
		return errors.New("a valid email is required")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(r.Phone) != PhoneDigits {
		return errors.New("phone must be exactly 10 digits")
	}
	if r.Role != RoleVendor {
		return errors.New("unsupported role")
	}
	return nil
}

type LoginRequest struct {
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

func (r *LoginRequest) Normalize() {
	r.Phone = nonDigitsRe.ReplaceAllString(r.Phone, "")
	if r.Role == "" {
		r.Role = RoleVendor
	}
}

func (r *LoginRequest) Validate() error {
	if len(r.Phone) != PhoneDigits {
		return errors.New("phone must be exactly 10 digits")
	}
	if r.Role != RoleVendor {
		return errors.New("unsupported role")
	}
	return nil
}

// AuthResponse is the shared shape for login and register replies. Message
// carries the human-readable reason when Success is false.
type AuthResponse struct {
	Success     bool      `json:"success"`
	User        *UserInfo `json:"user,omitempty"`
	Message     string    `json:"message,omitempty"`
	AccessToken string    `json:"access_token,omitempty"`
	ExpiresIn   int64     `json:"expires_in,omitempty"`
}
