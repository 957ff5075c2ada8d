package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorBuilder(t *testing.T) {
	t.Run("basic error creation", func(t *testing.T) {
		err := Newf("something failed").
			Component("notification").
			Category(CategoryNetwork).
			Build()

		if err.Error() != "something failed" {
			t.Errorf("expected message 'something failed', got %q", err.Error())
		}
		if err.GetComponent() != "notification" {
			t.Errorf("expected component 'notification', got %q", err.GetComponent())
		}
		if err.GetCategory() != string(CategoryNetwork) {
			t.Errorf("expected category %q, got %q", CategoryNetwork, err.GetCategory())
		}
	})

	t.Run("wraps original error", func(t *testing.T) {
		base := stderrors.New("base failure")
		err := New(fmt.Errorf("wrapped: %w", base)).
			Component("datastore").
			Category(CategoryDatabase).
			Build()

		if !Is(err, base) {
			t.Error("expected enhanced error to match the wrapped base error")
		}
	})

	t.Run("context is copied", func(t *testing.T) {
		err := Newf("fail").Context("channel", "pushover").Build()
		ctx := err.GetContext()
		ctx["channel"] = "mutated"
		if err.Context["channel"] != "pushover" {
			t.Error("context copy should not alias internal state")
		}
	})

	t.Run("unknown component default", func(t *testing.T) {
		err := Newf("fail").Build()
		if err.GetComponent() != ComponentUnknown {
			t.Errorf("expected %q, got %q", ComponentUnknown, err.GetComponent())
		}
	})
}

func TestCategoryMatching(t *testing.T) {
	notFound := Newf("user 42 not found").
		Component("datastore").
		Category(CategoryNotFound).
		Build()

	if !IsNotFound(notFound) {
		t.Error("expected IsNotFound to be true")
	}
	if IsNotFound(stderrors.New("plain")) {
		t.Error("plain errors are not not-found errors")
	}

	wrapped := fmt.Errorf("handler: %w", notFound)
	if !IsNotFound(wrapped) {
		t.Error("expected IsNotFound to see through wrapping")
	}

	if !HasCategory(notFound, CategoryNotFound) {
		t.Error("expected HasCategory match")
	}
	if HasCategory(notFound, CategoryNetwork) {
		t.Error("unexpected category match")
	}
}
