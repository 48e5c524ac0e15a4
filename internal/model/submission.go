package model

import "time"

const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusInvited  = "invited"
	StatusActive   = "active"
	StatusArchived = "archived"
)

var statuses = []string{StatusPending, StatusVerified, StatusInvited, StatusActive, StatusArchived}

// ValidStatus reports whether s is one of the five lifecycle statuses.
func ValidStatus(s string) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Submission mirrors a row of the waitlist_submissions table. The actual
// schema and its constraints (email uniqueness included) live in the
// upstream data API; this struct only shapes payloads against it. The
// gorm tags exist for the in-memory dev store.
type Submission struct {
	ID        string      `json:"id" gorm:"primaryKey"`
	Email     string      `json:"email" gorm:"uniqueIndex"`
	Role      string      `json:"role"`
	Usecase   string      `json:"usecase"`
	Keywords  StringSlice `json:"keywords" gorm:"type:text"`
	CreatedAt time.Time   `json:"created_at"`
	Status    string      `json:"status" gorm:"index"`

	Source      string `json:"source"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMTerm     string `json:"utm_term"`
	UTMContent  string `json:"utm_content"`

	Consent   bool   `json:"consent"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`

	VerifyToken     string     `json:"verify_token,omitempty" gorm:"index"`
	VerifyExpiresAt *time.Time `json:"verify_expires_at,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`

	InviteToken     string     `json:"invite_token,omitempty" gorm:"index"`
	InviteExpiresAt *time.Time `json:"invite_expires_at,omitempty"`
}

// Public returns the subset of fields safe to hand back to an anonymous
// caller. Tokens, expiries and requester metadata stay server-side.
func (s *Submission) Public() map[string]any {
	return map[string]any{
		"id":         s.ID,
		"email":      s.Email,
		"role":       s.Role,
		"usecase":    s.Usecase,
		"keywords":   s.Keywords,
		"created_at": s.CreatedAt,
		"status":     s.Status,
	}
}
