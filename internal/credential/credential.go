// Package credential resolves the ordered authentication strategies
// (certificate first, then client secret) used to connect to Microsoft 365
// services, and turns a resolved strategy into an azidentity credential.
package credential

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"m365console/internal/common/errs"
	"m365console/internal/common/security"
	"m365console/internal/common/validation"
)

// Kind is the authentication method of a strategy.
type Kind string

const (
	KindCertificate Kind = "certificate"
	KindSecret      Kind = "secret"
)

// DefaultExpiryWarning is how close to NotAfter a certificate must be
// before Resolve emits a warning.
const DefaultExpiryWarning = 30 * 24 * time.Hour

// Options are the recognized credential settings.
type Options struct {
	TenantID              string
	ClientID              string
	ClientSecret          string // literal, env:NAME or file:PATH
	CertificateThumbprint string
	CertificatePath       string
	CertificatePassword   string // literal, env:NAME or file:PATH
}

// Credential is one resolved strategy. It is treated as immutable once
// returned by Resolve.
type Credential struct {
	Kind     Kind
	TenantID string
	ClientID string

	// Certificate strategy
	Thumbprint      string
	CertificatePath string
	Certificate     *Certificate

	// Secret strategy
	Secret string
}

// LogValue keeps secrets out of structured logs.
func (c Credential) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kind", string(c.Kind)),
		slog.String("tenantID", security.MaskGUID(c.TenantID)),
		slog.String("clientID", security.MaskGUID(c.ClientID)),
	}
	if c.Kind == KindCertificate {
		attrs = append(attrs, slog.String("thumbprint", security.MaskThumbprint(c.Thumbprint)))
		if c.Certificate != nil {
			attrs = append(attrs, slog.Time("notAfter", c.Certificate.Leaf.NotAfter))
		}
	}
	return slog.GroupValue(attrs...)
}

func (c Credential) String() string {
	if c.Kind == KindCertificate {
		return fmt.Sprintf("certificate %s", security.MaskThumbprint(c.Thumbprint))
	}
	return "client secret"
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Strategies []Credential
	Warnings   []string
}

// Resolver builds strategies from Options. It performs no network I/O; the
// only reads are the certificate file (or store) and secret references.
type Resolver struct {
	// Now is the clock used for expiry checks.
	Now func() time.Time
	// ExpiryWarning is the window before NotAfter that triggers a warning.
	ExpiryWarning time.Duration
}

// NewResolver returns a Resolver using the wall clock and a 30 day warning window.
func NewResolver() *Resolver {
	return &Resolver{Now: time.Now, ExpiryWarning: DefaultExpiryWarning}
}

// Resolve returns the usable strategies, certificate first. Unusable
// strategies are skipped with a warning. When none is usable, or the tenant
// or client id is missing, a ConfigError is returned.
func (r *Resolver) Resolve(opts Options) (*Resolution, error) {
	tenantID := strings.TrimSpace(opts.TenantID)
	clientID := strings.TrimSpace(opts.ClientID)
	if tenantID == "" {
		return nil, errs.Config("credential.resolve", "tenantId is required")
	}
	if clientID == "" {
		return nil, errs.Config("credential.resolve", "clientId is required")
	}
	if err := validation.ValidateGUID(tenantID, "tenantId"); err != nil {
		return nil, errs.Config("credential.resolve", "%v", err)
	}
	if err := validation.ValidateGUID(clientID, "clientId"); err != nil {
		return nil, errs.Config("credential.resolve", "%v", err)
	}

	res := &Resolution{}

	if opts.CertificatePath != "" || opts.CertificateThumbprint != "" {
		cred, warning, err := r.certificateStrategy(tenantID, clientID, opts)
		switch {
		case err != nil:
			res.Warnings = append(res.Warnings, fmt.Sprintf("certificate strategy unusable: %v", err))
		default:
			res.Strategies = append(res.Strategies, cred)
			if warning != "" {
				res.Warnings = append(res.Warnings, warning)
			}
		}
	}

	if opts.ClientSecret != "" {
		secret, err := ResolveSecret(opts.ClientSecret)
		switch {
		case err != nil:
			res.Warnings = append(res.Warnings, fmt.Sprintf("client secret unusable: %v", err))
		case secret == "":
			res.Warnings = append(res.Warnings, "client secret unusable: reference resolved to an empty value")
		default:
			res.Strategies = append(res.Strategies, Credential{
				Kind:     KindSecret,
				TenantID: tenantID,
				ClientID: clientID,
				Secret:   secret,
			})
		}
	}

	if len(res.Strategies) == 0 {
		if len(res.Warnings) > 0 {
			return nil, errs.Config("credential.resolve", "no usable credential (%s)", strings.Join(res.Warnings, "; "))
		}
		return nil, errs.Config("credential.resolve", "no usable credential: set certificatePath, certificateThumbprint or clientSecret")
	}
	return res, nil
}

func (r *Resolver) certificateStrategy(tenantID, clientID string, opts Options) (Credential, string, error) {
	thumbprint := validation.NormalizeThumbprint(opts.CertificateThumbprint)
	if thumbprint != "" {
		if err := validation.ValidateThumbprint(thumbprint); err != nil {
			return Credential{}, "", err
		}
	}

	password, err := ResolveSecret(opts.CertificatePassword)
	if err != nil {
		return Credential{}, "", fmt.Errorf("certificate password: %w", err)
	}

	var cert *Certificate
	if opts.CertificatePath != "" {
		if err := validation.ValidateFilePath(opts.CertificatePath, "certificatePath"); err != nil {
			return Credential{}, "", err
		}
		cert, err = LoadPFXFile(opts.CertificatePath, password)
	} else {
		cert, err = loadFromStore(thumbprint)
	}
	if err != nil {
		return Credential{}, "", err
	}

	if thumbprint != "" && cert.Thumbprint() != thumbprint {
		return Credential{}, "", fmt.Errorf("thumbprint %s does not match certificate %s",
			security.MaskThumbprint(thumbprint), security.MaskThumbprint(cert.Thumbprint()))
	}

	now := r.now()
	info := cert.Info(now)
	if info.IsExpired {
		return Credential{}, "", fmt.Errorf("certificate %s expired on %s", info.Subject, info.ValidTo.Format(time.DateOnly))
	}
	if now.Before(info.ValidFrom) {
		return Credential{}, "", fmt.Errorf("certificate %s is not valid before %s", info.Subject, info.ValidFrom.Format(time.DateOnly))
	}

	var warning string
	if info.ValidTo.Sub(now) < r.expiryWarning() {
		warning = fmt.Sprintf("certificate %s expires in %d days (%s)", info.Subject, info.DaysUntilExpiry, info.ValidTo.Format(time.DateOnly))
	}

	return Credential{
		Kind:            KindCertificate,
		TenantID:        tenantID,
		ClientID:        clientID,
		Thumbprint:      cert.Thumbprint(),
		CertificatePath: opts.CertificatePath,
		Certificate:     cert,
	}, warning, nil
}

func (r *Resolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Resolver) expiryWarning() time.Duration {
	if r.ExpiryWarning <= 0 {
		return DefaultExpiryWarning
	}
	return r.ExpiryWarning
}
