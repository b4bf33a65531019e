package mailer

import (
	"strings"
	"testing"

	"github.com/dcode-github/realestate_platform/backend/config"
	"github.com/dcode-github/realestate_platform/backend/models"
)

func TestNewWithoutCredentialsIsNoop(t *testing.T) {
	if _, ok := New(config.SMTPConfig{Host: "smtp.example.com"}).(NoopSender); !ok {
		t.Fatalf("expected NoopSender when credentials are missing")
	}
	if _, ok := New(config.SMTPConfig{Host: "smtp.example.com", User: "u", Password: "p"}).(*SMTPSender); !ok {
		t.Fatalf("expected SMTPSender when credentials are set")
	}
}

func TestContactTemplateEscapesInput(t *testing.T) {
	body, err := render(contactTemplate, &models.ContactSubmission{
		Name:    "Jane",
		Email:   "jane@example.com",
		Subject: "buying",
		Message: "<script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Fatalf("message was not escaped: %s", body)
	}
	if !strings.Contains(body, "jane@example.com") {
		t.Fatalf("email missing from body: %s", body)
	}
}

func TestListingTemplate(t *testing.T) {
	p := &models.Property{Title: "House in Austin", PropertyType: "house", ListingType: "sale", Price: 250000,
		Address: models.Address{City: "Austin", State: "TX"}}
	l := &models.Lead{Name: "A", Email: "a@x.com", Message: "Submitted sale listing"}
	body, err := render(listingTemplate, listingData{Property: p, Lead: l})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"House in Austin", "250000", "Austin, TX", "a@x.com"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body: %s", want, body)
		}
	}
}
