package config

import (
	"strings"
	"testing"
)

func TestValidateReviewerAcceptsURIs(t *testing.T) {
	for _, r := range []string{"mailto:user@example.com", "https://example.com/u/1"} {
		if err := ValidateReviewer(r); err != nil {
			t.Errorf("ValidateReviewer(%q): %v", r, err)
		}
	}
}

func TestValidateReviewerRejectsBareEmail(t *testing.T) {
	err := ValidateReviewer("user@example.com")
	if err == nil {
		t.Fatal("expected an error for a bare email address")
	}
	if want := "mailto:user@example.com"; !strings.Contains(err.Error(), want) {
		t.Errorf("expected suggestion %q in error %q", want, err.Error())
	}
}
