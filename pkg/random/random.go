// Package random generates the alphanumeric identifiers used as
// client, session, device and request ids.
package random

import (
	"crypto/rand"
	"math/big"
)

// Alphabet is the character set identifiers are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator produces an identifier of the requested length.
type Generator func(length int) string

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Alphanumeric returns a string of the given length drawn
// uniformly from [A-Za-z0-9]. Non-positive lengths yield "".
func Alphanumeric(length int) string {
	if length <= 0 {
		return ""
	}
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			// crypto/rand only fails when the OS source is broken.
			panic("random: read entropy: " + err.Error())
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf)
}
