// Package cognito wraps the user pool auth flows the API depends on:
// password sign-in and refresh-token exchange.
package cognito

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/rs/zerolog"

	"github.com/fieldstock/inventory-api/internal/config"
	"github.com/fieldstock/inventory-api/internal/infrastructure/metrics"
	"github.com/fieldstock/inventory-api/internal/utils/platformerrors"
)

// API is the subset of the identity provider client in use.
type API interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

// TokenSet carries the tokens returned by an auth flow. Cognito omits the
// refresh token on refresh exchanges, hence the pointer fields.
type TokenSet struct {
	AccessToken  *string
	IDToken      *string
	RefreshToken *string
	ExpiresIn    int
}

// SignInResult is either a token set or a pending challenge.
type SignInResult struct {
	Tokens        *TokenSet
	ChallengeName string
	Session       string
}

// Client exchanges credentials and refresh tokens with the user pool.
type Client struct {
	api      API
	clientID string
	logger   zerolog.Logger
}

// NewClient builds the identity provider client from configuration.
func NewClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	api := cognitoidentityprovider.NewFromConfig(awsCfg, func(o *cognitoidentityprovider.Options) {
		if cfg.CognitoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.CognitoEndpoint)
		}
	})

	return NewClientWithAPI(api, cfg.CognitoClientID, log), nil
}

// NewClientWithAPI wires an existing API implementation, used by tests.
func NewClientWithAPI(api API, clientID string, log zerolog.Logger) *Client {
	return &Client{
		api:      api,
		clientID: clientID,
		logger:   log.With().Str("component", "cognito").Logger(),
	}
}

// Refresh exchanges a refresh token for new access and id tokens.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	out, err := c.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
	})
	if err != nil {
		metrics.RecordTokenRefresh("error")
		return nil, fmt.Errorf("refresh token auth: %w", err)
	}
	if out.AuthenticationResult == nil {
		metrics.RecordTokenRefresh("empty")
		return nil, errors.New("refresh token auth: no authentication result")
	}

	metrics.RecordTokenRefresh("success")
	return tokenSetFromResult(out.AuthenticationResult), nil
}

// SignIn runs the password flow. Challenge responses are results, not
// errors, so the handler can pass them through to the client.
func (c *Client) SignIn(ctx context.Context, username, password string) (*SignInResult, error) {
	out, err := c.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, classifySignInError(ctx, err)
	}

	if out.ChallengeName != "" {
		session := ""
		if out.Session != nil {
			session = *out.Session
		}
		c.logger.Info().Str("challenge", string(out.ChallengeName)).Msg("sign-in challenge issued")
		return &SignInResult{ChallengeName: string(out.ChallengeName), Session: session}, nil
	}

	if out.AuthenticationResult == nil {
		return nil, errors.New("password auth: no authentication result")
	}
	return &SignInResult{Tokens: tokenSetFromResult(out.AuthenticationResult)}, nil
}

func tokenSetFromResult(result *types.AuthenticationResultType) *TokenSet {
	return &TokenSet{
		AccessToken:  result.AccessToken,
		IDToken:      result.IdToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    int(result.ExpiresIn),
	}
}

func classifySignInError(ctx context.Context, err error) error {
	var notAuthorized *types.NotAuthorizedException
	if errors.As(err, &notAuthorized) {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeUnauthorized,
			"incorrect username or password", err, "")
	}
	var notFound *types.UserNotFoundException
	if errors.As(err, &notFound) {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeNotFound,
			"user not found", err, "")
	}
	var notConfirmed *types.UserNotConfirmedException
	if errors.As(err, &notConfirmed) {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeForbidden,
			"user is not confirmed", err, "")
	}
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
		"identity provider request failed", err, "")
}
