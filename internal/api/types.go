package api

import "strings"

// User is the account record returned by sign-in and profile.
type User struct {
	ID        string `json:"_id" yaml:"id"`
	FirstName string `json:"firstname" yaml:"first_name"`
	LastName  string `json:"lastname" yaml:"last_name"`
	Email     string `json:"email" yaml:"email"`
	Role      string `json:"role" yaml:"role"`
	Type      string `json:"type" yaml:"type"`
	Confirmed bool   `json:"confirmed" yaml:"confirmed"`
	CreatedAt string `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty" yaml:"updated_at,omitempty"`
}

// FullName returns "first last" with surrounding space trimmed.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SignInResult is the outcome of a successful sign-in.
type SignInResult struct {
	User  User
	Token string
}

// Education holds the education block some member records carry.
type Education struct {
	Major      string `json:"major,omitempty" yaml:"major,omitempty"`
	StudentID  string `json:"studentId,omitempty" yaml:"student_id,omitempty"`
	SchoolYear string `json:"schoolYear,omitempty" yaml:"school_year,omitempty"`
}

// Member is one entry of a class member list. The server does not pin a
// shape, so every field is optional.
type Member struct {
	ID        string     `json:"_id,omitempty" yaml:"id,omitempty"`
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	FirstName string     `json:"firstname,omitempty" yaml:"first_name,omitempty"`
	LastName  string     `json:"lastname,omitempty" yaml:"last_name,omitempty"`
	Email     string     `json:"email,omitempty" yaml:"email,omitempty"`
	Role      string     `json:"role,omitempty" yaml:"role,omitempty"`
	StudentID string     `json:"studentId,omitempty" yaml:"student_id,omitempty"`
	Education *Education `json:"education,omitempty" yaml:"education,omitempty"`
}

// signInUser is the sign-in payload: the user record plus its token.
type signInUser struct {
	User
	Token string `json:"token"`
}

type signInResponse struct {
	Data *signInUser `json:"data"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
