package utils

import (
	"crypto/rand"
)

// accessKeyCharset matches the codes the event team hands out: uppercase
// letters, digits, underscore and hyphen.
const accessKeyCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-"

// accessKeyLength is the length of server-generated key codes.
const accessKeyLength = 32

// GenerateAccessKey returns a random 32-character access key code.
func GenerateAccessKey() (string, error) {
	// Make a slice of random bytes.
	code := make([]byte, accessKeyLength)

	// Read into the slice.
	if _, err := rand.Read(code); err != nil {
		return "", err
	}

	// Map bytes onto the charset.
	for i := 0; i < accessKeyLength; i++ {
		code[i] = accessKeyCharset[int(code[i])%len(accessKeyCharset)]
	}

	return string(code), nil
}
