package users

import "golang.org/x/crypto/bcrypt"

// HashPassword produces a salted bcrypt hash of the secret. The plaintext is
// never stored or logged.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a submitted secret against a stored hash. Callers
// must map a false result to the same generic response as a missing principal.
func VerifyPassword(storedHash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}
