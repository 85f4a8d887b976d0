package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestUserInputSurvivesWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("checkout: %w", UserInput("order below minimum of 10"))
	uie, ok := AsUserInput(err)
	if !ok {
		t.Fatalf("AsUserInput() ok = false, want true")
	}
	if uie.Message != "order below minimum of 10" {
		t.Fatalf("Message = %q", uie.Message)
	}
}

func TestCollaboratorWrapsBoth(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := Collaborator("insert ban", cause)
	if !errors.Is(err, ErrCollaborator) {
		t.Fatalf("errors.Is(err, ErrCollaborator) = false")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false")
	}
	if Collaborator("noop", nil) != nil {
		t.Fatalf("Collaborator(nil) must be nil")
	}
	if _, ok := AsUserInput(err); ok {
		t.Fatalf("collaborator error reported as user input")
	}
}

func TestConfiguration(t *testing.T) {
	t.Parallel()

	err := Configuration("duplicate command %q", "ban")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("errors.Is(err, ErrConfiguration) = false")
	}
}
