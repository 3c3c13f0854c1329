package lnurl

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// GenerateK1 returns 32 bytes of cryptographically secure randomness as 64
// lowercase hex characters, used as the single-use handshake nonce.
func GenerateK1() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate k1: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsLightningAddress reports whether s has the local@domain shape.
func IsLightningAddress(s string) bool {
	_, _, ok := splitLightningAddress(s)
	return ok
}

// ParseLightningAddress splits a local@domain lightning address.
func ParseLightningAddress(s string) (local, domain string, err error) {
	local, domain, ok := splitLightningAddress(s)
	if !ok {
		return "", "", fmt.Errorf("invalid lightning address: %q", s)
	}
	return local, domain, nil
}

func splitLightningAddress(s string) (string, string, bool) {
	if s == "" || s != strings.TrimSpace(s) {
		return "", "", false
	}
	at := strings.IndexByte(s, '@')
	if at <= 0 {
		return "", "", false
	}
	local, domain := s[:at], s[at+1:]
	if domain == "" || !strings.Contains(domain, ".") {
		return "", "", false
	}
	if strings.ContainsAny(local, " \t") || strings.ContainsAny(domain, " \t@") {
		return "", "", false
	}
	return local, domain, true
}

// msatsPerBTC is 10^11: 10^8 sats per BTC times 10^3 msats per sat.
var msatsPerBTC = decimal.New(1, 11)

// FiatToMsats converts a fiat amount to millisatoshis at the given rate
// (fiat units per whole BTC). Truncates toward zero on sub-msat remainders.
func FiatToMsats(fiat, rate decimal.Decimal) int64 {
	if rate.IsZero() {
		return 0
	}
	return fiat.Mul(msatsPerBTC).Div(rate).IntPart()
}

// MsatsToFiat is the exact inverse of FiatToMsats for integral inputs.
func MsatsToFiat(msats int64, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(msats).Mul(rate).Div(msatsPerBTC)
}

// ValidateAmount is an inclusive range check.
func ValidateAmount(amount, min, max int64) bool {
	return amount >= min && amount <= max
}

// IsInternalDomain reports whether domain equals or is a subdomain of base.
func IsInternalDomain(domain, base string) bool {
	domain = strings.ToLower(domain)
	base = strings.ToLower(base)
	return domain == base || strings.HasSuffix(domain, "."+base)
}

// CallbackURL joins the configured callback base with a path.
func CallbackURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
