package entity

import (
	"time"
)

// User is the aggregate root for the credential store.
// Password holds a bcrypt hash. VerificationToken and ResetToken hold
// sha256 digests of one-time codes, never the codes themselves.
type User struct {
	ID                  int64
	FullName            string
	Email               string
	Password            string
	Role                Profession
	Gender              string
	Age                 int
	IsVerified          bool
	VerificationToken   *string
	ResetToken          *string
	ResetTokenExpiresAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PublicUser is the sanitized projection returned to clients.
type PublicUser struct {
	ID         int64      `json:"id"`
	FullName   string     `json:"fullName"`
	Email      string     `json:"email"`
	Role       Profession `json:"role"`
	Gender     string     `json:"gender"`
	Age        int        `json:"age"`
	IsVerified bool       `json:"isVerified"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		Role:       u.Role,
		Gender:     u.Gender,
		Age:        u.Age,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}
