package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/go-github/v73/github"
)

// SignatureHeader carries the HMAC-SHA256 signature of a webhook body.
const SignatureHeader = "X-Hub-Signature-256"

const signaturePrefix = "sha256="

// VerifySignature reports whether header is the sha256=<hex> HMAC of payload
// under secret. The MAC comparison is constant time; an empty header never verifies.
func VerifySignature(payload []byte, header string, secret []byte) bool {
	header = strings.TrimSpace(header)
	if header == "" || !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	return github.ValidateSignature(header, payload, secret) == nil
}

// Sign returns the sha256=<hex> signature of payload under secret.
func Sign(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
