package auth

import (
	"fmt"

	"github.com/alexedwards/argon2id"
)

// argon2idParams defines OWASP minimum parameters for Argon2id.
// Memory: 47 MiB, Iterations: 1, Parallelism: 1
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword returns an Argon2id hash of the password in PHC format.
// Format: $argon2id$v=19$m=48128,t=1,p=1$<salt>$<hash>
func HashPassword(password string) (string, error) {
	hash, err := argon2id.CreateHash(password, argon2idParams)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// CheckPassword verifies a password against a stored PHC-format hash.
// Returns false (not an error) on mismatch; errors indicate a malformed
// stored hash.
func CheckPassword(password, storedHash string) (bool, error) {
	match, err := argon2id.ComparePasswordAndHash(password, storedHash)
	if err != nil {
		return false, fmt.Errorf("failed to compare password: %w", err)
	}
	return match, nil
}

// NewUser creates a User with a freshly hashed password.
func NewUser(username, password string, roles []Role, extra map[string]string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{
		Username:     username,
		PasswordHash: hash,
		Roles:        roles,
		Extra:        extra,
	}, nil
}
