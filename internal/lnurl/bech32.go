package lnurl

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEncoding is returned for any token that is not a well-formed
// lowercase lnurl bech32 string.
var ErrInvalidEncoding = errors.New("invalid lnurl encoding")

const (
	hrp     = "lnurl"
	charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
)

var generator = []uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}

func polymod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= generator[i]
			}
		}
	}
	return chk
}

func hrpExpand(hrp string) []byte {
	out := make([]byte, len(hrp)*2+1)
	for i, c := range hrp {
		out[i] = byte(c) >> 5
		out[i+len(hrp)+1] = byte(c) & 31
	}
	out[len(hrp)] = 0
	return out
}

func createChecksum(hrp string, data []byte) []byte {
	values := append(hrpExpand(hrp), data...)
	values = append(values, []byte{0, 0, 0, 0, 0, 0}...)
	pm := polymod(values) ^ 1
	checksum := make([]byte, 6)
	for i := range checksum {
		checksum[i] = byte((pm >> uint(5*(5-i))) & 31)
	}
	return checksum
}

func verifyChecksum(hrp string, data []byte) bool {
	return polymod(append(hrpExpand(hrp), data...)) == 1
}

func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	acc := 0
	bits := uint(0)
	var result []byte
	maxv := (1 << toBits) - 1
	for _, value := range data {
		acc = (acc << fromBits) | int(value)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			result = append(result, byte((acc>>bits)&maxv))
		}
	}
	if pad {
		if bits > 0 {
			result = append(result, byte((acc<<(toBits-bits))&maxv))
		}
	} else if bits >= fromBits || ((acc<<(toBits-bits))&maxv) != 0 {
		return nil, fmt.Errorf("invalid padding in bit conversion")
	}
	return result, nil
}

// Encode bech32-encodes a URL as a lowercase lnurl token.
func Encode(rawURL string) (string, error) {
	converted, err := convertBits([]byte(rawURL), 8, 5, true)
	if err != nil {
		return "", err
	}
	checksum := createChecksum(hrp, converted)
	combined := append(converted, checksum...)

	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, c := range combined {
		if int(c) >= len(charset) {
			return "", fmt.Errorf("invalid data value %d", c)
		}
		sb.WriteByte(charset[c])
	}
	return sb.String(), nil
}

// Decode reverses Encode. The wire format is case-strict: tokens containing
// uppercase characters are rejected outright.
func Decode(token string) (string, error) {
	if token == "" || strings.ToLower(token) != token {
		return "", ErrInvalidEncoding
	}
	sep := strings.LastIndexByte(token, '1')
	if sep < 1 || token[:sep] != hrp {
		return "", ErrInvalidEncoding
	}
	encoded := token[sep+1:]
	if len(encoded) < 6 {
		return "", ErrInvalidEncoding
	}
	data := make([]byte, len(encoded))
	for i := 0; i < len(encoded); i++ {
		idx := strings.IndexByte(charset, encoded[i])
		if idx < 0 {
			return "", ErrInvalidEncoding
		}
		data[i] = byte(idx)
	}
	if !verifyChecksum(hrp, data) {
		return "", ErrInvalidEncoding
	}
	decoded, err := convertBits(data[:len(data)-6], 5, 8, false)
	if err != nil {
		return "", ErrInvalidEncoding
	}
	return string(decoded), nil
}

// Validate reports whether token is a decodable lnurl string. It never
// returns an error: empty strings, the bare literal "lnurl" and anything
// Decode rejects simply yield false.
func Validate(token string) bool {
	if token == "" || token == hrp {
		return false
	}
	_, err := Decode(token)
	return err == nil
}
