package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinAdminCost is the lowest bcrypt cost accepted for the configured admin hash.
const MinAdminCost = 10

// HashPassword hashes a plaintext password with the given cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// ValidateHash checks that hash is a bcrypt hash of at least minCost.
func ValidateHash(hash string, minCost int) error {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return fmt.Errorf("not a bcrypt hash: %w", err)
	}
	if cost < minCost {
		return fmt.Errorf("bcrypt cost %d below minimum %d", cost, minCost)
	}
	return nil
}
