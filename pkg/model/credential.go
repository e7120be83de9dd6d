package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	UsernameMinLength = 1
	UsernameMaxLength = 64
)

// Letters, digits and underscore only; matches the identity service's rule.
var usernamePattern = regexp.MustCompile(`^\w+$`)

var ErrInvalidUsername = errors.New("invalid username")

// UserCredential is one authorized user as published by the identity service.
type UserCredential struct {
	Username string `json:"username"`
	Secret   string `json:"-"`
}

// Identity derives the login identity used by structured config targets.
func (c UserCredential) Identity(domain string) string {
	return c.Username + "@" + domain
}

// ValidateUsername returns the lowercased username or ErrInvalidUsername
// when the length or character set is out of bounds.
func ValidateUsername(username string) (string, error) {
	if len(username) < UsernameMinLength || len(username) > UsernameMaxLength || !usernamePattern.MatchString(username) {
		return "", fmt.Errorf("%w: %q", ErrInvalidUsername, username)
	}
	return strings.ToLower(username), nil
}

// GenerationRecord is one complete credential snapshot. Readers always see
// a whole snapshot or none; GeneratedAt strictly increases across
// regenerations and usernames are unique within a record.
type GenerationRecord struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	Users       []UserCredential `json:"users"`
}

// Empty reports whether the record carries no usable credentials.
// A degraded boot runs with an empty record rather than failing.
func (r GenerationRecord) Empty() bool {
	return len(r.Users) == 0
}
