package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-sasl"

	"m365console/internal/common/errs"
	"m365console/internal/common/logger"
	"m365console/internal/common/validation"
	"m365console/internal/credential"
)

const (
	ServiceExchangeIMAP = "exchange-imap"
	// ExchangeScope is the application scope for Exchange Online IMAP.
	ExchangeScope = "https://outlook.office365.com/.default"
)

// IMAPAuthenticator opens an IMAPS connection to Exchange Online and
// authenticates a mailbox with an app-only OAuth token.
type IMAPAuthenticator struct {
	Host          string
	Port          int
	Mailbox       string
	NewCredential CredentialFactory
	Dial          func(address string, options *imapclient.Options) (*imapclient.Client, error)
	Log           *slog.Logger
}

// NewIMAPAuthenticator returns an authenticator for host:993.
func NewIMAPAuthenticator(host, mailbox string, log *slog.Logger) *IMAPAuthenticator {
	return &IMAPAuthenticator{
		Host:          host,
		Port:          993,
		Mailbox:       mailbox,
		NewCredential: credential.TokenCredential,
		Dial:          imapclient.DialTLS,
		Log:           log,
	}
}

// IMAPSession is an authenticated IMAP connection.
type IMAPSession struct {
	client *imapclient.Client
}

// Close logs out and closes the connection.
func (s *IMAPSession) Close(context.Context) error {
	if s.client == nil {
		return nil
	}
	logoutErr := s.client.Logout().Wait()
	closeErr := s.client.Close()
	if logoutErr != nil {
		return fmt.Errorf("IMAP logout failed: %w", logoutErr)
	}
	return closeErr
}

func (a *IMAPAuthenticator) Authenticate(ctx context.Context, cred credential.Credential) (Session, error) {
	if err := validation.ValidateHostname(a.Host); err != nil {
		return nil, errs.New(errs.KindConfig, "imap.host", err)
	}
	if err := validation.ValidateEmail(a.Mailbox); err != nil {
		return nil, errs.New(errs.KindConfig, "imap.mailbox", err)
	}

	tc, err := a.NewCredential(cred)
	if err != nil {
		return nil, errs.New(errs.KindConfig, "imap.credential", err)
	}
	token, err := tc.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{ExchangeScope}})
	if err != nil {
		return nil, fmt.Errorf("exchange token request failed: %w", err)
	}

	address := net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
	logger.LogDebug(a.Log, "Connecting to IMAP server", "address", address)

	client, err := a.Dial(address, &imapclient.Options{
		TLSConfig: &tls.Config{ServerName: a.Host, MinVersion: tls.VersionTLS12},
	})
	if err != nil {
		return nil, errs.Network("imap.dial", fmt.Errorf("connection failed: %w", err))
	}

	if caps := client.Caps(); caps != nil && !supportsOAuth(caps) {
		_ = client.Close()
		return nil, errs.New(errs.KindPermanent, "imap.capabilities",
			fmt.Errorf("server %s does not advertise an OAuth SASL mechanism", a.Host))
	}

	saslClient := sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
		Username: a.Mailbox,
		Token:    token.Token,
	})
	if err := client.Authenticate(saslClient); err != nil {
		_ = client.Close()
		return nil, errs.Auth("imap.authenticate", fmt.Errorf("XOAUTH2 authentication failed: %w", err))
	}

	logger.LogDebug(a.Log, "IMAP mailbox authenticated", "mailbox", a.Mailbox)
	return &IMAPSession{client: client}, nil
}

// supportsOAuth reports whether caps advertise XOAUTH2 or OAUTHBEARER.
func supportsOAuth(caps imap.CapSet) bool {
	for c := range caps {
		mech, ok := strings.CutPrefix(strings.ToUpper(string(c)), "AUTH=")
		if ok && (mech == "XOAUTH2" || mech == "OAUTHBEARER") {
			return true
		}
	}
	return false
}
