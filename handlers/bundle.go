package handlers

import (
	userRepoPkg "appispot/database/repository/user"
)

// HandlerBundle groups all endpoint handlers into one struct so route
// registration takes a single dependency.
type HandlerBundle struct {
	// UserRepo backs the auth middleware's cache-miss lookups.
	UserRepo userRepoPkg.UserRepository

	Users    *UserHandler
	Spots    *SpotHandler
	Bookings *BookingHandler
	Chats    *ChatHandler
	Uploads  *UploadHandler
	WS       *WSHandler
}
