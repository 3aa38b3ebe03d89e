package usecase

import (
	"crypto/rand"
	"io"
)

// DefaultCodeLength is the canonical voucher code length.
const DefaultCodeLength = 8

// generateVoucherCode returns a uniformly random numeric code of the given length.
// The code is both the RADIUS username and password.
func generateVoucherCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	const digits = "0123456789"
	// bytes >= 250 are rejected so every digit is equally likely
	const limit = 250

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, digits[int(b)%len(digits)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
