package service

import "errors"

var (
	// ErrNotFound is returned when a token id is absent from the store
	ErrNotFound = errors.New("token not found")
	// ErrAlreadyUsed is returned when a registration token was already consumed
	ErrAlreadyUsed = errors.New("token already used")
	// ErrExpired is returned when a registration token is past its expiry
	ErrExpired = errors.New("token expired")
	// ErrUnresolvable is returned when no destination matches a product and type
	ErrUnresolvable = errors.New("no destination for product and type")
	// ErrMalformedInput is returned for rows or requests missing required fields
	ErrMalformedInput = errors.New("malformed input")
	// ErrTransport is returned when an email could not be delivered
	ErrTransport = errors.New("email transport failure")
	// ErrEmailDisabled is returned by a mailer that has no sender configured
	ErrEmailDisabled = errors.New("email sending disabled")
	// ErrPersistence is returned when the token store could not be read or written
	ErrPersistence = errors.New("token store failure")
)
