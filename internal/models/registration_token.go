package models

import "time"

// RegistrationToken is a single-use, time-limited link to an assessment form.
// JSON tags follow the tokens.json export format.
type RegistrationToken struct {
	Token       string `json:"token"`
	Name        string `json:"nome"`
	Email       string `json:"email"`
	Company     string `json:"empresa"`
	RoundCode   string `json:"codrodada"`
	LeaderName  string `json:"nomeLider"`
	LeaderEmail string `json:"emailLider"`
	Product     string `json:"produto"`
	Type        string `json:"tipo"`

	ExpiresAt time.Time `json:"expira_em"`
	Used      bool      `json:"usado"`

	// Populated on completion
	PasswordHash string     `json:"senha_hash,omitempty"`
	Age          string     `json:"idade,omitempty"`
	Role         string     `json:"cargo,omitempty"`
	UsedAt       *time.Time `json:"usado_em,omitempty"`

	CreatedAt time.Time `json:"criado_em"`
}

// IsExpiredAt reports whether the token is past its expiry at now.
// A token expiring exactly at now is still valid.
func (t *RegistrationToken) IsExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsUsed reports whether the token has been consumed
func (t *RegistrationToken) IsUsed() bool {
	return t.Used
}

// RegistrationRow is one invitee read from an upload, before a token is minted
type RegistrationRow struct {
	Line        int
	Name        string
	Email       string
	Company     string
	RoundCode   string
	LeaderName  string
	LeaderEmail string
	Product     string
	Type        string
}
