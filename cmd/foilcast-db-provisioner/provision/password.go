package provision

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// PasswordLength is the default length of generated passwords
const PasswordLength = 24

// GeneratePassword returns length characters of URL-safe base64 drawn from
// crypto/rand. The alphabet needs no escaping in SQL literals or URLs.
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		length = PasswordLength
	}

	buf := make([]byte, base64.RawURLEncoding.DecodedLen(length)+1)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:length], nil
}
