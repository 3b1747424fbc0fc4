// Package reference generates merchant reference numbers for payment
// attempts. The numbers correlate a token request with its later callback and
// verification; uniqueness against stored attempts is enforced by the
// repository, not here.
package reference

import (
	"math/rand"
)

// Length is the fixed length of a reference number.
const Length = 12

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generate returns a 12-character reference number drawn uniformly from
// uppercase letters and digits.
func Generate() string {
	buf := make([]byte, Length)
	for i := range buf {
		buf[i] = charset[rand.Intn(len(charset))]
	}
	return string(buf)
}
