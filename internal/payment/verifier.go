// Package payment implements payment gateway callback verification and the
// order settlement flow it triggers.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Verifier proves that a settlement callback was produced by the payment
// gateway. The gateway signs "orderReference|paymentReference" with a shared
// secret; the verifier recomputes the HMAC-SHA256 and compares in constant
// time. The separator and field order must match the gateway byte-for-byte.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier keyed with the gateway shared secret.
// An empty secret is a configuration error: the process must not serve
// callbacks without one.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("gateway secret must not be empty")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Sign computes the lowercase-hex HMAC-SHA256 signature for the given
// reference pair. Used by tests and by gateway request creation.
func (v *Verifier) Sign(orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the expected HMAC for the
// reference pair. A mismatch is a normal outcome, not an error.
func (v *Verifier) Verify(orderRef, paymentRef, signature string) bool {
	expected := v.Sign(orderRef, paymentRef)
	return hmac.Equal([]byte(signature), []byte(expected))
}
