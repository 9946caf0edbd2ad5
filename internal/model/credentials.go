package model

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// SetPassword hashes the given password onto the user record.
func (u *User) SetPassword(password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.PasswordDate = time.Now().UTC()
	return nil
}

// VerifyCredentials checks the password and, when the account has a second
// factor configured, the supplied TOTP code. A nil secondFactor skips the
// TOTP check only for accounts without one configured.
func (u *User) VerifyCredentials(password string, secondFactor *string) bool {
	if u.PasswordHash == "" {
		return false
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return false
	}
	if u.HasSecondFactor() {
		if secondFactor == nil {
			return false
		}
		return totp.Validate(*secondFactor, *u.SecondFactor)
	}
	return secondFactor == nil
}

// NewTokenValue returns a fresh opaque bearer token value. The raw value is
// only ever held by the caller; the store keeps it for later lookup.
func NewTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
