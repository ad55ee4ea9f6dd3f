package systempay

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Algorithm selects how the payment form signature is computed.
type Algorithm string

const (
	AlgorithmSHA1       Algorithm = "SHA1"
	AlgorithmHMACSHA256 Algorithm = "HMAC_SHA256"
)

const (
	// FieldPrefix marks the fields that take part in the signature.
	FieldPrefix = "vads_"
	// SignatureField carries the signature in both directions.
	SignatureField = "signature"

	signatureSeparator = "+"
)

// ParseAlgorithm accepts the codes used in configuration and in the back
// office ("SHA-1", "SHA-256", "HMAC-SHA-256").
func ParseAlgorithm(raw string) (Algorithm, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SHA1", "SHA-1":
		return AlgorithmSHA1, nil
	case "HMAC_SHA256", "HMAC-SHA-256", "SHA-256", "SHA256":
		return AlgorithmHMACSHA256, nil
	}
	return "", fmt.Errorf("unknown signature algorithm %q", raw)
}

// signingString concatenates the values of every vads_ field sorted by key,
// each followed by "+", and appends the key.
func signingString(params map[string]string, key string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if strings.HasPrefix(k, FieldPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(params[k])
		b.WriteString(signatureSeparator)
	}
	b.WriteString(key)
	return b.String()
}

// Sign computes the signature of params with the given key.
func Sign(params map[string]string, key string, algo Algorithm) (string, error) {
	message := signingString(params, key)
	switch algo {
	case AlgorithmSHA1:
		sum := sha1.Sum([]byte(message))
		return hex.EncodeToString(sum[:]), nil
	case AlgorithmHMACSHA256:
		mac := hmac.New(sha256.New, []byte(key))
		mac.Write([]byte(message))
		return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
	}
	return "", fmt.Errorf("unknown signature algorithm %q", algo)
}

// Verify recomputes the signature of params and compares it to expected
// ignoring letter case.
func Verify(params map[string]string, key string, algo Algorithm, expected string) bool {
	computed, err := Sign(params, key, algo)
	if err != nil {
		return false
	}
	a := []byte(strings.ToUpper(computed))
	b := []byte(strings.ToUpper(expected))
	return subtle.ConstantTimeCompare(a, b) == 1
}
