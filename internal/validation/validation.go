package validation

import (
	"fmt"
	"regexp"
	"strings"

	"assessmentlinks/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// bcrypt rejects longer inputs
const maxPasswordBytes = 72

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(field, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: field, Message: "is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: field, Message: "invalid email format"}
	}
	return nil
}

// ValidateRequired checks that a field is not blank
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidatePassword checks the password submitted on the completion form
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "senha", Message: "is required"}
	}
	if len(password) > maxPasswordBytes {
		return ValidationError{Field: "senha", Message: fmt.Sprintf("must be at most %d bytes", maxPasswordBytes)}
	}
	return nil
}

// ValidateRegistrationRow checks the fields a registration token cannot be issued without.
// Product may be blank; it is derived from the type.
func ValidateRegistrationRow(row models.RegistrationRow) error {
	if err := ValidateRequired("nome", row.Name); err != nil {
		return err
	}
	if err := ValidateEmail("email", row.Email); err != nil {
		return err
	}
	return ValidateRequired("tipo", row.Type)
}

// ValidateLeaderRow checks the fields a leader token cannot be issued without.
// A present emailEnvio must be a valid address.
func ValidateLeaderRow(row models.LeaderRow) error {
	if err := ValidateRequired("nomeLider", row.LeaderName); err != nil {
		return err
	}
	if err := ValidateEmail("emailLider", row.LeaderEmail); err != nil {
		return err
	}
	if strings.TrimSpace(row.SendEmail) != "" {
		return ValidateEmail("emailEnvio", row.SendEmail)
	}
	return nil
}
