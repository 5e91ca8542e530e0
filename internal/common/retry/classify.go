package retry

import (
	"context"
	"errors"
	"strings"

	"m365console/internal/common/errs"
)

// Signature maps a lowercase message fragment to an error kind.
type Signature struct {
	Pattern string
	Kind    errs.Kind
}

// DefaultSignatures is the table of known error text fragments. Order matters:
// the first matching entry wins, so authentication codes are listed before the
// generic transient patterns ("AADSTS50058 ... timeout" is still an auth failure).
var DefaultSignatures = []Signature{
	// Entra ID / token endpoint rejections
	{"aadsts", errs.KindAuth},
	{"invalid_client", errs.KindAuth},
	{"invalid_grant", errs.KindAuth},
	{"unauthorized_client", errs.KindAuth},
	{"authentication failed", errs.KindAuth},
	{"401 unauthorized", errs.KindAuth},
	{"403 forbidden", errs.KindAuth},

	// Transient transport faults
	{"timeout", errs.KindNetwork},
	{"timed out", errs.KindNetwork},
	{"connection reset", errs.KindNetwork},
	{"connection refused", errs.KindNetwork},
	{"connection aborted", errs.KindNetwork},
	{"temporary failure", errs.KindNetwork},
	{"temporarily unavailable", errs.KindNetwork},
	{"try again", errs.KindNetwork},
	{"no such host", errs.KindNetwork},
	{"network is unreachable", errs.KindNetwork},
	{"broken pipe", errs.KindNetwork},
	{"unexpected eof", errs.KindNetwork},
	{"serviceunavailable", errs.KindNetwork},
	{"service unavailable", errs.KindNetwork},
	{"gatewaytimeout", errs.KindNetwork},
	{"toomanyrequests", errs.KindNetwork},
	{"too many requests", errs.KindNetwork},
	{"503", errs.KindNetwork},
	{"504", errs.KindNetwork},
	{"429", errs.KindNetwork},
}

// Classifier decides the kind of a failure.
type Classifier interface {
	Classify(err error) errs.Kind
}

// SignatureClassifier classifies errors by their type first and then by
// matching the lowercased message against a signature table.
type SignatureClassifier struct {
	Signatures []Signature
}

// NewClassifier returns a classifier over the default signature table plus
// any extra signatures. Extra entries are consulted first.
func NewClassifier(extra ...Signature) *SignatureClassifier {
	sigs := make([]Signature, 0, len(extra)+len(DefaultSignatures))
	sigs = append(sigs, extra...)
	sigs = append(sigs, DefaultSignatures...)
	return &SignatureClassifier{Signatures: sigs}
}

// Classify returns the kind of err. Typed errors keep their kind, context
// cancellation is permanent, and anything unmatched is permanent.
func (c *SignatureClassifier) Classify(err error) errs.Kind {
	if err == nil {
		return errs.KindPermanent
	}

	// Check for context cancellation - never retry these
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errs.KindPermanent
	}

	if kind, ok := errs.KindOf(err); ok {
		return kind
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range c.Signatures {
		if strings.Contains(msg, sig.Pattern) {
			return sig.Kind
		}
	}

	return errs.KindPermanent
}

var defaultClassifier = NewClassifier()
