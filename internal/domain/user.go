// Package domain contains core domain types for the Driftline relay.
package domain

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Identity stability values. Stability drifts on every register and login.
const (
	StabilityStable      = "stable"
	StabilityFluctuating = "fluctuating"
	StabilityUnstable    = "unstable"
)

// User represents an account in the identity store.
type User struct {
	ID                int64     `json:"id"`
	MobileNumber      string    `json:"mobile_number"`
	Username          string    `json:"username"`
	CreatedAt         time.Time `json:"created_at"`
	IsActive          bool      `json:"is_active"`
	IdentityStability string    `json:"identity_stability"`
}

// ApplyIdentityDrift re-rolls the user's identity stability.
func (u *User) ApplyIdentityDrift() {
	drift := rand.Float64()
	switch {
	case drift < 0.05:
		u.IdentityStability = StabilityUnstable
	case drift < 0.15:
		u.IdentityStability = StabilityFluctuating
	default:
		u.IdentityStability = StabilityStable
	}
}

// DefaultUsername derives a display name from the last digits of a
// mobile number, used when registration omits an explicit username.
func DefaultUsername(mobile string) string {
	if len(mobile) >= 4 {
		return "User_" + mobile[len(mobile)-4:]
	}
	return "User_" + mobile
}

var mobileStripper = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "")

// NormalizeMobileNumber strips formatting characters and validates the
// result: digits only, 10 to 15 of them, and no long numbers with a
// leading zero.
func NormalizeMobileNumber(raw string) (string, error) {
	cleaned := mobileStripper.Replace(raw)
	if cleaned == "" {
		return "", fmt.Errorf("mobile number is required")
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("mobile number must contain only digits")
		}
	}
	if len(cleaned) < 10 || len(cleaned) > 15 {
		return "", fmt.Errorf("mobile number must be between 10 and 15 digits")
	}
	if strings.HasPrefix(cleaned, "0") && len(cleaned) > 11 {
		return "", fmt.Errorf("invalid mobile number format")
	}
	return cleaned, nil
}
