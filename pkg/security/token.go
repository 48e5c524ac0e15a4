// Package security contains token generation helpers
package security

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/spf13/viper"
)

const tokenSize = 16

// NewToken returns an opaque random token, hex-encoded. Collisions are
// not handled; 128 bits is plenty for single-use links.
func NewToken() string {
	b := make([]byte, tokenSize)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// VerifyExpiry computes the expiry timestamp for a freshly minted
// verification token from the configured TTL.
func VerifyExpiry(now time.Time) time.Time {
	return now.Add(time.Duration(viper.GetInt("tokens.verify_ttl_hours")) * time.Hour)
}

// InviteExpiry computes the expiry timestamp for a freshly minted invite
// token from the configured TTL.
func InviteExpiry(now time.Time) time.Time {
	return now.Add(time.Duration(viper.GetInt("tokens.invite_ttl_days")) * 24 * time.Hour)
}

// Expired reports whether a stored expiry gates out a redemption. A
// missing expiry never expires.
func Expired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.Before(now)
}
