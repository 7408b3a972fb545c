package model

// Role identifies what a participant is allowed to do. The set is closed:
// patients create and read their own visits, practitioners run them, finance
// reads reports.
type Role string

const (
	RolePatient      Role = "patient"
	RolePractitioner Role = "practitioner"
	RoleFinance      Role = "finance"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RolePractitioner, RoleFinance:
		return true
	}
	return false
}

// Participant is a person known to the system: a patient, a practitioner or a
// finance user. Specialization is set only for practitioners.
type Participant struct {
	Base
	Name           string `json:"name" db:"name"`
	Email          string `json:"email" db:"email"`
	PasswordHash   string `json:"-" db:"password_hash"`
	Role           Role   `json:"role" db:"role"`
	Specialization string `json:"specialization,omitempty" db:"specialization"`
	IsActive       bool   `json:"isActive" db:"is_active"`
}

type RegisterParticipantRequest struct {
	Name           string `json:"name" binding:"required,max=200"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8"`
	Role           Role   `json:"role" binding:"required,oneof=patient practitioner finance"`
	Specialization string `json:"specialization" binding:"max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenResponse carries a freshly issued token pair.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}
