package models

import (
	"strings"
	"testing"
)

func TestRegistrationPasswordBounds(t *testing.T) {
	u := User{Name: "Ada", Email: "ada@example.com", Role: RoleUser}

	u.Password = strings.Repeat("p", PasswordMaxBytes)
	if errs := u.ValidateRegistration(); len(errs) != 0 {
		t.Fatalf("72 byte password rejected: %v", errs)
	}

	for _, password := range []string{"short", strings.Repeat("p", PasswordMaxBytes+1)} {
		u.Password = password
		errs := u.ValidateRegistration()
		if len(errs) != 1 || errs[0].Field != "password" {
			t.Fatalf("password of %d bytes: errors = %+v", len(password), errs)
		}
	}
}

func TestRequiredMessageIsNotAFormat(t *testing.T) {
	var errs ValidationErrors
	errs.required("discount", " ", "Discount must be 100% or less")
	if len(errs) != 1 || errs[0].Message != "Discount must be 100% or less" {
		t.Fatalf("errors = %+v", errs)
	}
}
