package dto

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func validRegister() RegisterRequest {
	return RegisterRequest{
		Email:    "user@example.com",
		Username: "user_name-1",
		FullName: "Jane Doe",
		Password: "Secret123",
	}
}

func TestRegisterRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*RegisterRequest)
		wantField string
	}{
		{"valid", func(*RegisterRequest) {}, ""},
		{"missing email", func(r *RegisterRequest) { r.Email = "" }, "email"},
		{"bad email", func(r *RegisterRequest) { r.Email = "user@" }, "email"},
		{"short username", func(r *RegisterRequest) { r.Username = "ab" }, "username"},
		{"long username", func(r *RegisterRequest) { r.Username = strings.Repeat("a", 51) }, "username"},
		{"username with space", func(r *RegisterRequest) { r.Username = "user name" }, "username"},
		{"username with dot", func(r *RegisterRequest) { r.Username = "user.name" }, "username"},
		{"short full name", func(r *RegisterRequest) { r.FullName = "J" }, "full_name"},
		{"two rune full name", func(r *RegisterRequest) { r.FullName = "李雷" }, ""},
		{"short password", func(r *RegisterRequest) { r.Password = "Sec123" }, "password"},
		{"no upper", func(r *RegisterRequest) { r.Password = "secret123" }, "password"},
		{"no lower", func(r *RegisterRequest) { r.Password = "SECRET123" }, "password"},
		{"no digit", func(r *RegisterRequest) { r.Password = "SecretPass" }, "password"},
		{"password over 72 bytes", func(r *RegisterRequest) { r.Password = "Aa1" + strings.Repeat("b", 70) }, "password"},
		{"password at 72 bytes", func(r *RegisterRequest) { r.Password = "Aa1" + strings.Repeat("b", 69) }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegister()
			tt.mutate(&req)
			err := req.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			details := ValidationDetails(err)
			if _, ok := details[tt.wantField]; !ok {
				t.Errorf("expected error on %s, got %v", tt.wantField, details)
			}
			if len(details) != 1 {
				t.Errorf("expected only %s to fail, got %v", tt.wantField, details)
			}
		})
	}
}

func TestRegisterRequest_Normalize(t *testing.T) {
	req := RegisterRequest{
		Email:    "  user@example.com\t",
		Username: "user",
		FullName: "  José  ",
	}
	req.Normalize()

	if req.Email != "user@example.com" {
		t.Errorf("email not trimmed: %q", req.Email)
	}
	if req.FullName != "José" {
		t.Errorf("full name not trimmed and composed: %q", req.FullName)
	}
	if req.Username != "user" {
		t.Errorf("username must be left as is: %q", req.Username)
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	if err := (LoginRequest{Email: "user@example.com", Password: "weak"}).Validate(); err != nil {
		t.Errorf("login must not apply the strength policy: %v", err)
	}

	details := ValidationDetails(LoginRequest{Email: "nope"}.Validate())
	if _, ok := details["email"]; !ok {
		t.Errorf("expected email error, got %v", details)
	}
	if _, ok := details["password"]; !ok {
		t.Errorf("expected password error, got %v", details)
	}
}

func TestUpdateProfileRequest_Validate(t *testing.T) {
	if err := (UpdateProfileRequest{}).Validate(); err != nil {
		t.Errorf("empty update should be valid: %v", err)
	}
	if !(UpdateProfileRequest{}).Empty() {
		t.Error("expected Empty for no fields")
	}

	valid := UpdateProfileRequest{
		Email:    strPtr("new@example.com"),
		Username: strPtr("new_name"),
		FullName: strPtr("New Name"),
		Password: strPtr("Another1"),
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid, got %v", err)
	}

	invalid := UpdateProfileRequest{
		Email:    strPtr(""),
		Username: strPtr("x"),
		Password: strPtr("alllowercase1"),
	}
	details := ValidationDetails(invalid.Validate())
	for _, field := range []string{"email", "username", "password"} {
		if _, ok := details[field]; !ok {
			t.Errorf("expected %s error, got %v", field, details)
		}
	}
	if _, ok := details["full_name"]; ok {
		t.Error("absent full_name must not be validated")
	}
}

func TestValidationDetails_NonValidationError(t *testing.T) {
	if ValidationDetails(nil) != nil {
		t.Error("expected nil for nil error")
	}
}
