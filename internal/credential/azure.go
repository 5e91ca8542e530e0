package credential

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"m365console/internal/common/errs"
)

// TokenCredential builds the azidentity credential for a resolved strategy.
func TokenCredential(cred Credential) (azcore.TokenCredential, error) {
	switch cred.Kind {
	case KindSecret:
		return azidentity.NewClientSecretCredential(cred.TenantID, cred.ClientID, cred.Secret, nil)
	case KindCertificate:
		if cred.Certificate == nil {
			return nil, errs.Config("credential.token", "certificate strategy has no decoded certificate")
		}
		// Send the full chain for subject name/issuer authentication.
		opts := &azidentity.ClientCertificateCredentialOptions{
			SendCertificateChain: true,
		}
		return azidentity.NewClientCertificateCredential(cred.TenantID, cred.ClientID,
			cred.Certificate.Chain, cred.Certificate.key, opts)
	default:
		return nil, errs.Config("credential.token", "unknown credential kind %q", cred.Kind)
	}
}

// ClassifyAuthError wraps an Entra ID rejection of the credential as an
// AuthError. Throttling and 5xx responses from the token endpoint are
// wrapped as NetworkError. Anything else is returned unchanged for the
// retry classifier.
func ClassifyAuthError(op string, err error) error {
	var authErr *azidentity.AuthenticationFailedError
	if !errors.As(err, &authErr) {
		return err
	}
	if resp := authErr.RawResponse; resp != nil {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return errs.Network(op, err)
		}
	}
	return errs.Auth(op, fmt.Errorf("credential rejected: %w", err))
}
