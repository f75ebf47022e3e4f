package config

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// JWTConfig holds the token signing settings.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// JWT validates and returns the token settings.
func (c *Config) JWT() (*JWTConfig, error) {
	jc := &JWTConfig{Secret: c.Auth.JWTSecret, ExpirationHours: c.Auth.JWTExpirationHours}
	if jc.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}
	if jc.ExpirationHours < 1 {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", jc.ExpirationHours)
	}
	return jc, nil
}

// PasswordConfig hashes and verifies account passwords.
type PasswordConfig struct {
	BcryptCost int
	Pepper     string
}

// Password validates and returns the hashing settings.
func (c *Config) Password() (*PasswordConfig, error) {
	pc := &PasswordConfig{BcryptCost: c.Auth.BcryptCost, Pepper: c.Auth.PasswordPepper}
	if pc.BcryptCost < bcrypt.MinCost || pc.BcryptCost > 14 {
		return nil, fmt.Errorf("bcrypt cost out of range: %d (must be %d-14)", pc.BcryptCost, bcrypt.MinCost)
	}
	return pc, nil
}

func (c *PasswordConfig) peppered(pw string) []byte {
	return []byte(pw + c.Pepper)
}

// HashPassword hashes a password with bcrypt.
func (c *PasswordConfig) HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(c.peppered(pw), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether pw matches the stored hash.
func (c *PasswordConfig) VerifyPassword(pw, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), c.peppered(pw)) == nil
}
