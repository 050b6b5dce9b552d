package models

import "time"

// User roles.
const (
	RoleGuest = "guest"
	RoleHost  = "host"
	RoleAdmin = "admin"
)

// User is a registered account. Hosts own spots, guests book them.
type User struct {
	ID           string    `bson:"id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	FullName     string    `bson:"fullName" json:"fullName"`
	Role         string    `bson:"role" json:"role"`
	Avatar       string    `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Phone        string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Location     string    `bson:"location,omitempty" json:"location,omitempty"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
