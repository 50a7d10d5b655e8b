package token

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateReset menghasilkan token reset password: 32 byte acak dalam bentuk hex.
func GenerateReset() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
