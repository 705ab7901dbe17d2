package authflow_test

import (
	"testing"

	"github.com/chefserve/chef-vendor/internal/authflow"
)

func TestRequestValidateEmailChannel(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		wantErr    bool
	}{
		{"plain address", "chef@example.com", false},
		{"mixed case trimmed", "  Chef@Example.COM ", false},
		{"subdomain", "chef@mail.example.co.in", false},
		{"missing at", "chef.example.com", true},
		{"missing tld", "chef@example", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &authflow.Request{
				Channel:       authflow.ChannelEmail,
				Identifier:    tt.identifier,
				Mode:          authflow.ModeLogin,
				TermsAccepted: true,
			}
			req.Normalize()
			err := req.Validate()
			if tt.wantErr && authflow.KindOf(err) != authflow.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRequestNormalizeStripsPhoneFormatting(t *testing.T) {
	req := &authflow.Request{
		Channel:       authflow.ChannelPhone,
		Identifier:    "+91 98765-43210",
		Mode:          authflow.ModeLogin,
		TermsAccepted: true,
	}
	req.Normalize()
	if req.Identifier != "919876543210" {
		t.Fatalf("expected digits only, got %q", req.Identifier)
	}
	// 12 digits after stripping the country code prefix is still invalid.
	if err := req.Validate(); authflow.KindOf(err) != authflow.KindValidation {
		t.Fatalf("expected validation error for 12 digits, got %v", err)
	}
}

func TestRequestValidateRegisterEmail(t *testing.T) {
	req := &authflow.Request{
		Channel:    authflow.ChannelPhone,
		Identifier: "9876543210",
		Mode:       authflow.ModeRegister,
		Registration: &authflow.RegistrationFields{
			Name:     "Asha Kitchen",
			Email:    "not-an-email",
			Password: "s3cret-pass",
		},
		TermsAccepted: true,
	}
	req.Normalize()
	if err := req.Validate(); authflow.KindOf(err) != authflow.KindValidation {
		t.Fatalf("expected validation error for bad registration email, got %v", err)
	}
}
