// Package randid generates short random identifiers.
package randid

import (
	"crypto/rand"
	"math/big"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Generate returns a random string of length characters from [a-z0-9].
func Generate(length int) string {
	if length <= 0 {
		return ""
	}

	size := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			panic("randid: crypto/rand unavailable: " + err.Error())
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out)
}
