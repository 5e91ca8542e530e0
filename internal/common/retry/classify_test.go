//go:build !integration
// +build !integration

package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"m365console/internal/common/errs"
)

func TestSignatureClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.Kind
	}{
		{"nil", nil, errs.KindPermanent},
		{"context cancelled", context.Canceled, errs.KindPermanent},
		{"deadline wrapped", fmt.Errorf("token: %w", context.DeadlineExceeded), errs.KindPermanent},
		{"connection reset", errors.New("read: connection reset by peer"), errs.KindNetwork},
		{"dns", errors.New("dial tcp: lookup login.microsoftonline.com: no such host"), errs.KindNetwork},
		{"throttled", errors.New("TooManyRequests: slow down"), errs.KindNetwork},
		{"unavailable", errors.New("the service is temporarily unavailable"), errs.KindNetwork},
		{"aadsts wins over timeout", errors.New("AADSTS50058: session timeout"), errs.KindAuth},
		{"invalid client", errors.New("invalid_client: secret expired"), errs.KindAuth},
		{"typed integrity", errs.Integrity("config-file", "malformed"), errs.KindIntegrity},
		{"unknown", errors.New("unexpected JSON"), errs.KindPermanent},
	}

	classifier := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifier.Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewClassifier_ExtraSignaturesFirst(t *testing.T) {
	classifier := NewClassifier(Signature{Pattern: "mailbox busy", Kind: errs.KindNetwork},
		Signature{Pattern: "timeout policy violated", Kind: errs.KindAuth})

	if got := classifier.Classify(errors.New("Mailbox busy, retry later")); got != errs.KindNetwork {
		t.Errorf("Classify(mailbox busy) = %v, want %v", got, errs.KindNetwork)
	}
	if got := classifier.Classify(errors.New("timeout policy violated")); got != errs.KindAuth {
		t.Errorf("Classify(timeout policy violated) = %v, want %v", got, errs.KindAuth)
	}
}
