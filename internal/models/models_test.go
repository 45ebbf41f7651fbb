package models

import (
	"testing"
	"time"
)

func TestRegistrationTokenIsExpiredAt(t *testing.T) {
	expiry := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{
			name: "before expiry",
			now:  expiry.Add(-1 * time.Hour),
			want: false,
		},
		{
			name: "exactly at expiry",
			now:  expiry,
			want: false,
		},
		{
			name: "just after expiry",
			now:  expiry.Add(1 * time.Nanosecond),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := RegistrationToken{Token: "abc", ExpiresAt: expiry}
			if got := token.IsExpiredAt(tt.now); got != tt.want {
				t.Errorf("IsExpiredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLeaderAccessTokenRecipient(t *testing.T) {
	tests := []struct {
		name  string
		token LeaderAccessToken
		want  string
	}{
		{
			name:  "send email set",
			token: LeaderAccessToken{LeaderEmail: "lider@example.com", SendEmail: "assistente@example.com"},
			want:  "assistente@example.com",
		},
		{
			name:  "send email blank falls back to leader email",
			token: LeaderAccessToken{LeaderEmail: "lider@example.com", SendEmail: "  "},
			want:  "lider@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.Recipient(); got != tt.want {
				t.Errorf("Recipient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLeaderEmailKey(t *testing.T) {
	if got := LeaderEmailKey("  Lider@Example.COM "); got != "lider@example.com" {
		t.Errorf("LeaderEmailKey() = %q, want %q", got, "lider@example.com")
	}
}

func TestLeaderSessionIsExpired(t *testing.T) {
	s := LeaderSession{ID: "s1", ExpiresAt: time.Now().Add(-1 * time.Minute)}
	if !s.IsExpired() {
		t.Error("IsExpired() = false for a past expiry")
	}
	s.ExpiresAt = time.Now().Add(time.Hour)
	if s.IsExpired() {
		t.Error("IsExpired() = true for a future expiry")
	}
}
