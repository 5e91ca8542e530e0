package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"

	"m365console/internal/common/errs"
	"m365console/internal/common/logger"
	"m365console/internal/common/security"
	"m365console/internal/credential"
)

const (
	// ServiceGraph is the service id for Microsoft Graph.
	ServiceGraph = "graph"
	// GraphScope is the application permission scope for Microsoft Graph.
	GraphScope = "https://graph.microsoft.com/.default"
)

// CredentialFactory turns a resolved strategy into a token credential.
type CredentialFactory func(credential.Credential) (azcore.TokenCredential, error)

// GraphAuthenticator acquires a Graph token and builds the Graph SDK client.
type GraphAuthenticator struct {
	Scopes        []string
	NewCredential CredentialFactory
	Log           *slog.Logger
}

// NewGraphAuthenticator returns an authenticator for the Graph default scope.
func NewGraphAuthenticator(log *slog.Logger) *GraphAuthenticator {
	return &GraphAuthenticator{
		Scopes:        []string{GraphScope},
		NewCredential: credential.TokenCredential,
		Log:           log,
	}
}

// GraphSession carries the Graph client and what the token says about us.
type GraphSession struct {
	Client    *msgraphsdk.GraphServiceClient
	ExpiresOn time.Time
	Claims    *TokenClaims
}

func (s *GraphSession) Close(context.Context) error {
	return nil
}

func (g *GraphAuthenticator) Authenticate(ctx context.Context, cred credential.Credential) (Session, error) {
	logger.LogDebug(g.Log, "Setting up Microsoft Graph client", "credential", cred)

	tc, err := g.NewCredential(cred)
	if err != nil {
		return nil, errs.New(errs.KindConfig, "graph.credential", err)
	}

	// Acquire eagerly so a rejected credential fails here and not on first use.
	token, err := tc.GetToken(ctx, policy.TokenRequestOptions{Scopes: g.Scopes})
	if err != nil {
		return nil, fmt.Errorf("graph token request failed: %w", err)
	}

	claims, err := ParseTokenClaims(token.Token)
	if err != nil {
		logger.LogWarn(g.Log, "Could not parse token claims", "error", err)
	} else {
		logger.LogDebug(g.Log, "Token acquired", "token", security.MaskAccessToken(token.Token),
			"app", claims.AppDisplayName, "roles", claims.Roles, "expiresOn", token.ExpiresOn)
	}

	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(tc, g.Scopes)
	if err != nil {
		return nil, errs.New(errs.KindPermanent, "graph.client", fmt.Errorf("graph client initialization failed: %w", err))
	}

	return &GraphSession{Client: client, ExpiresOn: token.ExpiresOn, Claims: claims}, nil
}
