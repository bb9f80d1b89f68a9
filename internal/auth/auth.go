package auth

import "golang.org/x/crypto/bcrypt"

// Verifier compares supplied wallet passwords against their stored bcrypt
// hashes. It is the credential-store collaborator behind the ledger's
// password gate; the ledger itself never sees hashes being produced.
type Verifier struct{}

// Verify reports whether password matches the stored hash
func (Verifier) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPassword hashes a plain password for storage on a protected wallet
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
