package auth

import "time"

// User is an identity record. The email is unique, enforced by the storage
// layer. The password hash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the client-facing projection of a User
type PublicUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Public returns the client-facing projection of the user
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// UserToken is the result of a successful register or login
type UserToken struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

// RevokedToken records a token string invalidated by logout together with
// its original expiry. Entries past their expiry are dead weight; the
// middleware would reject such tokens on expiry grounds anyway, so they
// are safe to garbage-collect.
type RevokedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Identity is the authenticated principal attached to the request context
// by the auth middleware.
type Identity struct {
	ID string `json:"id"`
}
