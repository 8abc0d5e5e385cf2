package utils

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
)

func RandomString(bytes int) string {
	b := make([]byte, bytes)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// RandomIndex returns a uniform random int in [0, n).
func RandomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
