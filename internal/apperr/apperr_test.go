package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Message(t *testing.T) {
	err := Upstream("serpapi", "Invalid API key.", nil)
	if err.Error() != "serpapi: Invalid API key." {
		t.Errorf("unexpected message: %q", err.Error())
	}

	cause := errors.New("deadline exceeded")
	nav := Navigation("crawl https://example.org", cause)
	if nav.Error() != "crawl https://example.org: deadline exceeded" {
		t.Errorf("unexpected message: %q", nav.Error())
	}
	if !errors.Is(nav, cause) {
		t.Errorf("expected navigation error to unwrap to its cause")
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("search failed: %w", Configuration("cse", "GOOGLE_API_KEY is required"))

	if KindOf(err) != KindConfiguration {
		t.Errorf("expected configuration kind, got %s", KindOf(err))
	}
	if !Is(err, KindConfiguration) {
		t.Errorf("expected Is to match configuration")
	}
	if Is(err, KindUpstream) {
		t.Errorf("did not expect upstream kind")
	}
	if Is(nil, KindUnknown) {
		t.Errorf("nil error should never match")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Errorf("plain errors should be unknown kind")
	}
}
