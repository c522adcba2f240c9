package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateReviewer checks that reviewer parses as a URI, matching the
// "reviewer identities are URIs" invariant (mailto:, https:, etc.). A
// bare "name@example.com" is a common mistake, so the error suggests
// the mailto: form when it looks like an email address missing its
// scheme.
func ValidateReviewer(reviewer string) error {
	if _, err := url.Parse(reviewer); err == nil && strings.Contains(reviewer, ":") {
		return nil
	}
	msg := fmt.Sprintf("%q is not a valid URI", reviewer)
	if !strings.Contains(reviewer, ":") && strings.Contains(reviewer, "@") && strings.Contains(reviewer, ".") {
		msg += fmt.Sprintf("\n  Try %q", "mailto:"+reviewer)
	}
	return fmt.Errorf("\"reviewer\" %s", msg)
}
