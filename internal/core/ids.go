package core

import (
	"crypto/rand"
	"math/big"
)

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 9
)

// NewRoomID returns a 9-character base36 identifier (36^9 ≈ 1.0e14
// distinct values). Uniqueness is probabilistic only; the registry
// regenerates on collision.
func NewRoomID() string {
	max := big.NewInt(int64(len(idAlphabet)))
	buf := make([]byte, idLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		buf[i] = idAlphabet[n.Int64()]
	}
	return string(buf)
}
