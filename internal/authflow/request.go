package authflow

import (
	"regexp"
	"strings"
)

// Channel is the contact method the one-time code is sent to.
type Channel string

const (
	ChannelPhone Channel = "phone"
	ChannelEmail Channel = "email"
)

// Mode decides the post-verification branch.
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

// PhoneLength is the required identifier length after stripping non-digits.
const PhoneLength = 10

// RegistrationFields are collected up front in register mode and submitted
// only after the code is verified.
type RegistrationFields struct {
	Name     string
	Email    string
	Password string
}

// Request describes one run of the flow. Channel, Identifier and Mode are
// immutable once Start has accepted them.
type Request struct {
	Channel       Channel
	Identifier    string
	Mode          Mode
	Registration  *RegistrationFields
	TermsAccepted bool
}

var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nonDigitsRe = regexp.MustCompile(`\D`)
)

// Normalize strips formatting before validation: phone numbers lose every
// non-digit character, emails are lowercased and trimmed.
func (r *Request) Normalize() {
	switch r.Channel {
	case ChannelPhone:
		r.Identifier = nonDigitsRe.ReplaceAllString(r.Identifier, "")
	case ChannelEmail:
		r.Identifier = strings.ToLower(strings.TrimSpace(r.Identifier))
	}
	if r.Registration != nil {
		r.Registration.Name = strings.TrimSpace(r.Registration.Name)
		r.Registration.Email = strings.ToLower(strings.TrimSpace(r.Registration.Email))
	}
}

// Validate applies the entry guard for Start. It never touches the network.
func (r *Request) Validate() error {
	if !r.TermsAccepted {
		return validationError("terms", "terms and conditions must be accepted")
	}

	switch r.Channel {
	case ChannelPhone:
		if r.Identifier == "" {
			return validationError("phone", "phone number is required")
		}
		if len(r.Identifier) != PhoneLength || nonDigitsRe.MatchString(r.Identifier) {
			return validationError("phone", "phone number must be exactly 10 digits")
		}
	case ChannelEmail:
		if r.Identifier == "" {
			return validationError("email", "email is required")
		}
		if !emailRegex.MatchString(r.Identifier) {
			return validationError("email", "invalid email format")
		}
	default:
		return validationError("channel", "unknown contact channel")
	}

	switch r.Mode {
	case ModeLogin:
	case ModeRegister:
		if r.Registration == nil {
			return validationError("registration", "registration fields are required")
		}
		if r.Registration.Name == "" {
			return validationError("name", "name is required")
		}
		if r.Registration.Email == "" {
			return validationError("email", "email is required")
		}
		if !emailRegex.MatchString(r.Registration.Email) {
			return validationError("email", "invalid email format")
		}
		if r.Registration.Password == "" {
			return validationError("password", "password is required")
		}
	default:
		return validationError("mode", "unknown flow mode")
	}

	return nil
}
