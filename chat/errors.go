package chat

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so the presentation layer can branch on it
// without parsing messages.
type Kind int

const (
	KindValidation Kind = iota
	KindAuth
	KindRoomNotFound
	KindBadPassword
	KindRoomFull
	KindDuplicateName
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindRoomNotFound:
		return "room_not_found"
	case KindBadPassword:
		return "bad_password"
	case KindRoomFull:
		return "room_full"
	case KindDuplicateName:
		return "duplicate_name"
	default:
		return "unknown"
	}
}

// Error carries a stable, user-displayable message per kind. Every failed
// operation leaves the store untouched.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is (or wraps) a chat Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

func NewValidationError(message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
	}
}

// NewInvalidCredentialsError is returned both when the user does not exist
// and when the password is wrong, so a caller cannot enumerate usernames.
func NewInvalidCredentialsError() *Error {
	return &Error{
		Kind:    KindAuth,
		Message: "Invalid username or password",
	}
}

func NewDuplicateUsernameError() *Error {
	return &Error{
		Kind:    KindDuplicateName,
		Message: "Username already exists",
	}
}

func NewDuplicateRoomNameError() *Error {
	return &Error{
		Kind:    KindDuplicateName,
		Message: "A room with this name already exists",
	}
}

func NewRoomNotFoundError() *Error {
	return &Error{
		Kind:    KindRoomNotFound,
		Message: "Room not found",
	}
}

func NewBadPasswordError() *Error {
	return &Error{
		Kind:    KindBadPassword,
		Message: "Invalid room password",
	}
}

func NewRoomFullError(limit int) *Error {
	return &Error{
		Kind:    KindRoomFull,
		Message: fmt.Sprintf("Room is full (limit: %d users)", limit),
	}
}
