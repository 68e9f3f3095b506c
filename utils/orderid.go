package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// NewOrderID generates a globally unique payment order id, e.g.
// "CF-1700000000-AB12CD". The id is threaded through checkout callback URLs
// and provider webhooks as the correlation key.
func NewOrderID() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms; fall back to time
		return fmt.Sprintf("CF-%d-%06X", time.Now().Unix(), time.Now().UnixNano()%0xFFFFFF)
	}
	return fmt.Sprintf("CF-%d-%s", time.Now().Unix(), strings.ToUpper(hex.EncodeToString(b)))
}
