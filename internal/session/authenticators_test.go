//go:build !integration
// +build !integration

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/golang-jwt/jwt/v5"

	"m365console/internal/common/errs"
	"m365console/internal/common/logger"
	"m365console/internal/credential"
)

type fakeTokenCredential struct {
	token  string
	err    error
	scopes []string
}

func (f *fakeTokenCredential) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.scopes = opts.Scopes
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return azcore.AccessToken{Token: f.token, ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func factoryFor(tc azcore.TokenCredential) CredentialFactory {
	return func(credential.Credential) (azcore.TokenCredential, error) { return tc, nil }
}

func signedToken(t *testing.T, app string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{AppDisplayName: app}).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestGraphAuthenticator(t *testing.T) {
	tc := &fakeTokenCredential{token: signedToken(t, "Reporting Console")}
	auth := NewGraphAuthenticator(logger.Discard())
	auth.NewCredential = factoryFor(tc)

	sess, err := auth.Authenticate(context.Background(), credential.Credential{Kind: credential.KindSecret})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	gs, ok := sess.(*GraphSession)
	if !ok {
		t.Fatalf("session type = %T, want *GraphSession", sess)
	}
	if gs.Client == nil {
		t.Error("Client is nil")
	}
	if gs.Claims == nil || gs.Claims.AppDisplayName != "Reporting Console" {
		t.Errorf("Claims = %+v", gs.Claims)
	}
	if len(tc.scopes) != 1 || tc.scopes[0] != GraphScope {
		t.Errorf("scopes = %v, want [%s]", tc.scopes, GraphScope)
	}
}

func TestGraphAuthenticator_TokenError(t *testing.T) {
	tokenErr := errors.New("connection reset by peer")
	auth := NewGraphAuthenticator(logger.Discard())
	auth.NewCredential = factoryFor(&fakeTokenCredential{err: tokenErr})

	_, err := auth.Authenticate(context.Background(), credential.Credential{Kind: credential.KindSecret})
	if !errors.Is(err, tokenErr) {
		t.Errorf("Authenticate() error = %v, want wrapped token error", err)
	}
}

func TestIMAPAuthenticator_DialFailureIsNetwork(t *testing.T) {
	auth := NewIMAPAuthenticator("outlook.office365.com", "reports@contoso.com", logger.Discard())
	auth.NewCredential = factoryFor(&fakeTokenCredential{token: "token"})
	auth.Dial = func(string, *imapclient.Options) (*imapclient.Client, error) {
		return nil, errors.New("i/o timeout")
	}

	_, err := auth.Authenticate(context.Background(), credential.Credential{Kind: credential.KindSecret})
	if !errors.Is(err, errs.ErrNetwork) {
		t.Errorf("Authenticate() error = %v, want NetworkError", err)
	}
}

func TestSupportsOAuth(t *testing.T) {
	tests := []struct {
		name string
		caps imap.CapSet
		want bool
	}{
		{"xoauth2", imap.CapSet{imap.CapIMAP4rev1: {}, imap.Cap("AUTH=XOAUTH2"): {}}, true},
		{"oauthbearer lowercase", imap.CapSet{imap.Cap("auth=oauthbearer"): {}}, true},
		{"plain only", imap.CapSet{imap.CapIMAP4rev1: {}, imap.Cap("AUTH=PLAIN"): {}}, false},
		{"empty", imap.CapSet{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := supportsOAuth(tt.caps); got != tt.want {
				t.Errorf("supportsOAuth() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIMAPAuthenticator_InvalidSettingsAreConfig(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		mailbox string
	}{
		{"bad host", "outlook office365 com", "reports@contoso.com"},
		{"empty host", "", "reports@contoso.com"},
		{"bad mailbox", "outlook.office365.com", "reports"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := &fakeTokenCredential{token: "token"}
			auth := NewIMAPAuthenticator(tt.host, tt.mailbox, logger.Discard())
			auth.NewCredential = factoryFor(tc)

			_, err := auth.Authenticate(context.Background(), credential.Credential{Kind: credential.KindSecret})
			if !errors.Is(err, errs.ErrConfig) {
				t.Errorf("Authenticate() error = %v, want ConfigError", err)
			}
			if tc.scopes != nil {
				t.Error("token requested for an unusable IMAP target")
			}
		})
	}
}
