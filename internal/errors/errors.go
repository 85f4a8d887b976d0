package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrCollaborator marks failures of the store or the messaging connector.
	ErrCollaborator = errors.New("collaborator error")
	// ErrConfiguration is fatal and only raised during startup.
	ErrConfiguration = errors.New("configuration error")
)

// UserInputError carries a reply meant for the chat user. It is not an incident.
type UserInputError struct {
	Message string
}

func (e *UserInputError) Error() string {
	return e.Message
}

func UserInput(message string) error {
	return &UserInputError{Message: message}
}

func AsUserInput(err error) (*UserInputError, bool) {
	var uie *UserInputError
	if errors.As(err, &uie) {
		return uie, true
	}
	return nil, false
}

func Collaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrCollaborator, err)
}

func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
