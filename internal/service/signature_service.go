package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HMACSignatureService implements ports.SignatureVerifier using HMAC-SHA256
// over the raw request body.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign computes HMAC-SHA256 of payload using secret.
// Returns lowercase hex-encoded signature.
func (s *HMACSignatureService) Sign(secret string, payload []byte) string {
	return hex.EncodeToString(s.digest(secret, payload))
}

// Verify checks signatureHex against HMAC-SHA256(secret, payload).
// Any malformed input yields false; the caller cannot tell which part was wrong.
func (s *HMACSignatureService) Verify(secret string, payload []byte, signatureHex string) bool {
	if secret == "" {
		return false
	}

	sig := strings.TrimSpace(signatureHex)
	sig = strings.TrimPrefix(sig, "sha256=")
	provided, err := hex.DecodeString(sig)
	if err != nil || len(provided) != sha256.Size {
		return false
	}

	return hmac.Equal(s.digest(secret, payload), provided)
}

func (s *HMACSignatureService) digest(secret string, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}
