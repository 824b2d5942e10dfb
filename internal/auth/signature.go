package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// PaymentSignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const PaymentSignatureHeader = "X-Payment-Signature"

var (
	ErrSignatureMissing  = errors.New("signature missing")
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// SignPayload returns hex(HMAC-SHA256(secret, body)).
func SignPayload(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPayload checks signature against body in constant time. An empty secret
// rejects every payload.
func VerifyPayload(secret, body []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" || len(secret) == 0 {
		return ErrSignatureMissing
	}
	given, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return ErrSignatureMismatch
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	if !hmac.Equal(given, mac.Sum(nil)) {
		return ErrSignatureMismatch
	}
	return nil
}
