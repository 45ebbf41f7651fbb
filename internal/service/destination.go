package service

import (
	"fmt"
	"net/url"

	"assessmentlinks/internal/models"
	"assessmentlinks/internal/normalize"
)

// Destination identifies one of the downstream assessment forms
type Destination int

const (
	DestinationArchetypeSelf Destination = iota + 1
	DestinationArchetypeTeam
	DestinationMicroclimate
)

func (d Destination) String() string {
	switch d {
	case DestinationArchetypeSelf:
		return "arquetipos_autoavaliacao"
	case DestinationArchetypeTeam:
		return "arquetipos_equipe"
	case DestinationMicroclimate:
		return "microambiente_equipe"
	default:
		return "unknown"
	}
}

const (
	productArchetypes   = "arquetipos"
	productMicroclimate = "microambiente"

	typeSelfAssessment     = "autoavaliacao"
	typeMicroclimateTeam   = "microambiente_equipe"
	typeMicroclimateSelf   = "microambiente_autoavaliacao"
	archetypeTypeSubstring = "arquetipo"
)

// Resolve maps a raw (product, type) pair to a destination. Both values are
// normalized before comparison.
func Resolve(product, formType string) (Destination, error) {
	p := normalize.Normalize(product)
	t := normalize.Normalize(formType)

	switch p {
	case productArchetypes:
		if t == typeSelfAssessment {
			return DestinationArchetypeSelf, nil
		}
		return DestinationArchetypeTeam, nil
	case productMicroclimate:
		// Both microclimate types land on the team form
		if t == typeMicroclimateTeam || t == typeMicroclimateSelf {
			return DestinationMicroclimate, nil
		}
	}
	return 0, fmt.Errorf("%w: produto=%q tipo=%q", ErrUnresolvable, product, formType)
}

// DeriveProduct infers the product from the form type when the upload leaves it blank
func DeriveProduct(formType string) string {
	if normalize.Contains(formType, archetypeTypeSubstring) {
		return productArchetypes
	}
	return productMicroclimate
}

// Destinations holds the configured base URL of each downstream form
type Destinations map[Destination]string

// NewDestinations builds the destination table from configured URLs
func NewDestinations(archetypeSelf, archetypeTeam, microclimate string) Destinations {
	return Destinations{
		DestinationArchetypeSelf: archetypeSelf,
		DestinationArchetypeTeam: archetypeTeam,
		DestinationMicroclimate:  microclimate,
	}
}

// BuildURL returns the destination URL carrying the invitee's identifying fields
// as query parameters. Values are the raw stored text, percent-encoded.
func (d Destinations) BuildURL(dest Destination, t *models.RegistrationToken) (string, error) {
	base, ok := d[dest]
	if !ok || base == "" {
		return "", fmt.Errorf("%w: no URL configured for %s", ErrUnresolvable, dest)
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid destination URL for %s: %w", dest, err)
	}

	q := u.Query()
	q.Set("email", t.Email)
	q.Set("emailLider", t.LeaderEmail)
	q.Set("empresa", t.Company)
	q.Set("codrodada", t.RoundCode)
	q.Set("nome", t.Name)
	q.Set("tipo", t.Type)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ResolveURL resolves the token's destination and builds its URL
func (d Destinations) ResolveURL(t *models.RegistrationToken) (string, error) {
	dest, err := Resolve(t.Product, t.Type)
	if err != nil {
		return "", err
	}
	return d.BuildURL(dest, t)
}
