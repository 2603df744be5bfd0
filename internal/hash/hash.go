package hash

import "golang.org/x/crypto/bcrypt"

// Password hashes a plaintext password for the local user directory. The
// remote store hashes server-side; this covers the local copy only.
func Password(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Check reports whether password matches the stored hash.
func Check(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
