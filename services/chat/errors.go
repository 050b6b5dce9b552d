package chat

import "errors"

var (
	// ErrForbidden is returned when the caller is not a participant of the
	// chat they are acting on.
	ErrForbidden = errors.New("not a participant of this chat")

	// ErrEmptyContent is returned for messages with no content.
	ErrEmptyContent = errors.New("message content is empty")

	// ErrNotFound is returned when the chat does not exist.
	ErrNotFound = errors.New("chat not found")

	// ErrSelfChat is returned when a user tries to open a chat with
	// themselves.
	ErrSelfChat = errors.New("cannot chat with yourself")
)
