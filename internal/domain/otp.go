package domain

import (
	"errors"
	"strings"
)

// OtpLength is the number of digits in a verification code.
const OtpLength = 4

// MaxOtpAttempts caps verification tries per issued code before it burns.
const MaxOtpAttempts = 5

type SendOtpRequest struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Identifier returns whichever channel the request targets.
func (r *SendOtpRequest) Identifier() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Phone
}

func (r *SendOtpRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = nonDigitsRe.ReplaceAllString(r.Phone, "")
}

func (r *SendOtpRequest) Validate() error {
	if r.Email == "" && r.Phone == "" {
		return errors.New("email or phone is required")
	}
	if r.Email != "" && r.Phone != "" {
		return errors.New("provide either email or phone, not both")
	}
	if r.Email != "" && !emailRe.MatchString(r.Email) {
		return errors.New("a valid email is required")
	}
	if r.Phone != "" && len(r.Phone) != PhoneDigits {
		return errors.New("phone must be exactly 10 digits")
	}
	return nil
}

type SendOtpResponse struct {
	Code string `json:"code"`
}

type VerifyOtpRequest struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Code  string `json:"code"`
}

func (r *VerifyOtpRequest) Identifier() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Phone
}

func (r *VerifyOtpRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = nonDigitsRe.ReplaceAllString(r.Phone, "")
	r.Code = strings.TrimSpace(r.Code)
}

func (r *VerifyOtpRequest) Validate() error {
	target := SendOtpRequest{Email: r.Email, Phone: r.Phone}
	if err := target.Validate(); err != nil {
		return err
	}
	if len(r.Code) != OtpLength {
		return errors.New("code must be exactly 4 digits")
	}
	for _, c := range r.Code {
		if c < '0' || c > '9' {
			return errors.New("code must be exactly 4 digits")
		}
	}
	return nil
}

type VerifyOtpResponse struct {
	Valid bool `json:"valid"`
}

type CheckUserResponse struct {
	Exists bool `json:"exists"`
}

type LoginNotifyRequest struct {
	Email  string `json:"email"`
	IP     string `json:"ip"`
	Device string `json:"device"`
}

func (r *LoginNotifyRequest) Validate() error {
	if !emailRe.MatchString(strings.TrimSpace(r.Email)) {
		return errors.New("a valid email is required")
	}
	return nil
}

type RegisterNotifyRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	IP     string `json:"ip"`
	Device string `json:"device"`
}

func (r *RegisterNotifyRequest) Validate() error {
	if !emailRe.MatchString(strings.TrimSpace(r.Email)) {
		return errors.New("a valid email is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

type NotifyResponse struct {
	Success bool `json:"success"`
}
