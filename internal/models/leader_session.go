package models

import "time"

// LeaderSession holds the leader identity handed to the analytics portal.
// It lives server-side; the browser only carries its ID.
type LeaderSession struct {
	ID          string    `json:"id"`
	Token       string    `json:"token"`
	LeaderName  string    `json:"nomeLider"`
	LeaderEmail string    `json:"emailLider"`
	Company     string    `json:"empresa"`
	RoundCode   string    `json:"codrodada"`
	CreatedAt   time.Time `json:"criado_em"`
	ExpiresAt   time.Time `json:"expira_em"`
}

// IsExpired checks if the session has expired
func (s *LeaderSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
