package auth

import "regexp"

// emailPattern is a permissive shape check, not a full RFC 5322 parser
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegisterRequest is the payload of POST /api/auth/register
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Validate checks field presence and email shape, returning a 400 error
// naming the first failing field. Validation always runs before any
// storage call.
func (r *RegisterRequest) Validate() error {
	if r.FirstName == "" {
		return BadRequest("First name is required")
	}
	if r.LastName == "" {
		return BadRequest("Last name is required")
	}
	if r.Email == "" {
		return BadRequest("Email is required")
	}
	if !emailPattern.MatchString(r.Email) {
		return BadRequest("Email is invalid")
	}
	if r.Password == "" {
		return BadRequest("Password is required")
	}
	return nil
}

// LoginRequest is the payload of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks field presence and email shape
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return BadRequest("Email is required")
	}
	if r.Password == "" {
		return BadRequest("Password is required")
	}
	if !emailPattern.MatchString(r.Email) {
		return BadRequest("Email is invalid")
	}
	return nil
}
