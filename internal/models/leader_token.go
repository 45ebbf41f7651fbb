package models

import (
	"strings"
	"time"
)

// LeaderAccessToken is a permanent link to the leader analytics portal
type LeaderAccessToken struct {
	Token       string    `json:"token"`
	LeaderName  string    `json:"nomeLider"`
	LeaderEmail string    `json:"emailLider"`
	SendEmail   string    `json:"emailEnvio"`
	Company     string    `json:"empresa"`
	RoundCode   string    `json:"codrodada"`
	CreatedAt   time.Time `json:"criado_em"`
	Active      bool      `json:"ativo"`
}

// EmailKey is the natural key used to deduplicate leader tokens
func (t *LeaderAccessToken) EmailKey() string {
	return LeaderEmailKey(t.LeaderEmail)
}

// Recipient returns the address leader links are sent to
func (t *LeaderAccessToken) Recipient() string {
	if strings.TrimSpace(t.SendEmail) != "" {
		return t.SendEmail
	}
	return t.LeaderEmail
}

// LeaderEmailKey canonicalizes a leader email for comparison
func LeaderEmailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LeaderRow is one leader read from an upload
type LeaderRow struct {
	Line        int
	LeaderName  string
	LeaderEmail string
	SendEmail   string
	Company     string
	RoundCode   string
}
