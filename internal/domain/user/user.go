package user

import (
	"errors"
	"time"
)

// Role is a closed set. Anything outside it is rejected at registration,
// and the access policy switches over it exhaustively.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RolePatient Role = "patient"
)

var roleLabels = map[Role]string{
	RoleAdmin:   "Administrator",
	RoleDoctor:  "Doctor",
	RoleNurse:   "Nurse",
	RolePatient: "Patient",
}

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleLabels[r]
	return r, ok
}

func (r Role) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

func (r Role) Label() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return string(r)
}

var ErrNotFound = errors.New("user not found")

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Active       bool      `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicView is what the API returns for a user. The password hash and the
// active flag stay internal.
type PublicView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	RoleLabel string    `json:"roleLabel"`
	JoinedAt  time.Time `json:"joinedAt"`
}

func (u User) Public() PublicView {
	return PublicView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		RoleLabel: u.Role.Label(),
		JoinedAt:  u.CreatedAt,
	}
}
