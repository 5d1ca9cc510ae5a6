package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// BalanceScale is the number of fractional digits kept for every balance and amount.
const BalanceScale = 2

// MaxBalance bounds every stored balance: NUMERIC(10,2) holds values strictly below 10^8.
var MaxBalance = decimal.New(1, 8)

// Account is a user's balance-bearing identity.
type Account struct {
	ID                  uuid.UUID
	Username            string
	Email               string
	PasswordHash        string
	Balance             decimal.Decimal
	Role                Role
	Banned              bool
	PasswordResetToken  *string
	PasswordResetExpire *time.Time
	CreatedAt           time.Time
}

func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Profile is the public view of an account. It is what the profile cache stores.
type Profile struct {
	ID        uuid.UUID       `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	Balance   decimal.Decimal `json:"balance"`
	Role      Role            `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}

func (a *Account) Profile() Profile {
	return Profile{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Balance:   a.Balance,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}

type ProfileResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Balance   string `json:"balance"`
	Role      Role   `json:"role"`
	CreatedAt string `json:"created"`
}

func NewProfileResponse(p Profile) ProfileResponse {
	return ProfileResponse{
		ID:        p.ID.String(),
		Username:  p.Username,
		Email:     p.Email,
		Balance:   FormatMoney(p.Balance),
		Role:      p.Role,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type ProfileListResponse struct {
	Accounts []ProfileResponse `json:"accounts"`
	Total    int               `json:"total"`
}

type UpdateProfileRequest struct {
	Username string `json:"username" validate:"omitempty,username"`
	Email    string `json:"email" validate:"omitempty,email,max=255,excludes=+"`
}

// FormatMoney renders an amount with exactly BalanceScale fractional digits.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(BalanceScale)
}
