package common

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// CalculateHash returns a hex HMAC-SHA256 digest over the given inputs.
// Each input is framed with its length so ("ab","c") and ("a","bc") can
// never produce the same digest, which matters when the digest stands in
// for a whole request.
func CalculateHash(key string, inputs ...any) string {
	if len(inputs) == 0 {
		return ""
	}
	h := hmac.New(sha256.New, []byte(key))
	var size [8]byte
	for _, val := range inputs {
		var field []byte
		switch v := val.(type) {
		case []byte:
			field = v
		case string:
			field = []byte(v)
		default:
			field = []byte(fmt.Sprintf("%v", v))
		}
		binary.BigEndian.PutUint64(size[:], uint64(len(field)))
		h.Write(size[:])
		h.Write(field)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateSecret returns n characters drawn from crypto/rand, url-safe
// base64 encoded so the value can travel in headers unescaped.
func GenerateSecret(n int) (string, error) {
	raw := make([]byte, (n*3+3)/4)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:n], nil
}
