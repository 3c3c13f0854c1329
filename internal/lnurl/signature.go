package lnurl

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer produces and checks HMAC-SHA256 signatures over invoice strings
// with a server-held secret, so an invoice handed out by this service can be
// recognized when it comes back.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the 64-char lowercase hex HMAC of the invoice.
func (s *Signer) Sign(invoice string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(invoice))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes and compares in constant time. Anything but the exact
// expected hex string is rejected.
func (s *Signer) Verify(invoice, signature string) bool {
	expected := s.Sign(invoice)
	return hmac.Equal([]byte(expected), []byte(signature))
}
