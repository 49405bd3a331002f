package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer computes and checks payment confirmation signatures:
// hex(HMAC-SHA256(secret, providerOrderID + "|" + providerPaymentID)).
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(providerOrderID, providerPaymentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(providerOrderID + "|" + providerPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time.
func (s *Signer) Verify(providerOrderID, providerPaymentID, signature string) bool {
	expected := s.Sign(providerOrderID, providerPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
