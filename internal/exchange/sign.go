package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// hmacSHA256Hex signs message with secret and returns the lowercase hex digest.
func hmacSHA256Hex(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func nowMillis() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}
