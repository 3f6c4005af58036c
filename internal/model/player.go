package model

import (
	"strings"
	"time"
)

const (
	MaxUsernameLength  = 32
	DefaultLeaderboard = 50
	MaxLeaderboard     = 100
)

// Player is a game identity. Wallet is the immutable identity key.
type Player struct {
	ID         string    `json:"id"`
	Wallet     string    `json:"wallet"`
	Username   string    `json:"username"`
	Level      int       `json:"level"`
	Experience int       `json:"experience"`
	IsActive   bool      `json:"is_active"`
	CreatedOn  time.Time `json:"created_on"`
	UpdatedOn  time.Time `json:"updated_on"`
}

// NormalizeWallet lower-cases and trims a wallet address so lookups are case-insensitive
func NormalizeWallet(wallet string) string {
	return strings.ToLower(strings.TrimSpace(wallet))
}

// IsWalletAddress reports whether s looks like a 0x-prefixed 20-byte hex address
func IsWalletAddress(s string) bool {
	if len(s) != 42 || (s[:2] != "0x" && s[:2] != "0X") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// ConnectPlayerRequest registers or reactivates a player
type ConnectPlayerRequest struct {
	Wallet   string `json:"wallet"`
	Username string `json:"username,omitempty"`
}

func (r *ConnectPlayerRequest) Validate() []FieldError {
	var errs []FieldError
	if !IsWalletAddress(strings.TrimSpace(r.Wallet)) {
		errs = append(errs, FieldError{Field: "wallet", Message: "must be a 0x-prefixed 40 hex character address"})
	}
	if len(r.Username) > MaxUsernameLength {
		errs = append(errs, FieldError{Field: "username", Message: "must be at most 32 characters"})
	}
	return errs
}

// UpdatePlayerRequest is a partial profile update
type UpdatePlayerRequest struct {
	Username   *string `json:"username,omitempty"`
	Level      *int    `json:"level,omitempty"`
	Experience *int    `json:"experience,omitempty"`
}

func (r *UpdatePlayerRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Username != nil && (strings.TrimSpace(*r.Username) == "" || len(*r.Username) > MaxUsernameLength) {
		errs = append(errs, FieldError{Field: "username", Message: "must be 1 to 32 characters"})
	}
	if r.Level != nil && *r.Level < 1 {
		errs = append(errs, FieldError{Field: "level", Message: "must be at least 1"})
	}
	if r.Experience != nil && *r.Experience < 0 {
		errs = append(errs, FieldError{Field: "experience", Message: "must not be negative"})
	}
	return errs
}
