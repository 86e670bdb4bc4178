// Package signature authenticates inbound Todoist webhook requests.
//
// Todoist signs each delivery with HMAC-SHA256 over the raw request body,
// keyed by the app's client secret, and sends the base64 digest in the
// X-Todoist-Hmac-SHA256 header. Verification must run on the exact byte
// sequence received; re-serializing the body first invalidates the check.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Header is the request header carrying the delivery signature. Lookup must
// be case-insensitive (http.Header and gin both canonicalize).
const Header = "X-Todoist-Hmac-SHA256"

// Verifier checks webhook payload signatures against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier keyed by secret. An empty secret is
// allowed here but rejects everything: verification fails closed rather
// than degrading to pass-through.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify reports whether provided is the base64 HMAC-SHA256 of body under
// the configured secret. Comparison is constant-time. Missing secret or
// missing signature always fail.
func (v *Verifier) Verify(body []byte, provided string) bool {
	if len(v.secret) == 0 || provided == "" {
		return false
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(provided))
}
