package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// NewAuthToken derives an opaque bearer token from the login identity, the
// wall clock and the process secret. The value is only meaningful as a key
// into the token store; collisions are not defended against beyond the
// hash space and timestamp entropy.
func NewAuthToken(identity, secret string) string {
	raw := fmt.Sprintf("%s:%.6f:%s", identity, float64(time.Now().UnixNano())/1e9, secret)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
