//go:build wireinject

package main

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/fieldstock/inventory-api/internal/config"
	"github.com/fieldstock/inventory-api/internal/domain/principal"
	"github.com/fieldstock/inventory-api/internal/domain/rbac"
	"github.com/fieldstock/inventory-api/internal/infrastructure/auth"
	"github.com/fieldstock/inventory-api/internal/infrastructure/cognito"
	"github.com/fieldstock/inventory-api/internal/infrastructure/dynamo"
	"github.com/fieldstock/inventory-api/internal/infrastructure/logger"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/handlers/authhandler"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/handlers/rolehandler"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/handlers/teamhandler"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/middlewares"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/session"
)

var storeSet = wire.NewSet(
	dynamo.NewClient,
	newPrincipalRepository,
	wire.Bind(new(principal.Repository), new(*dynamo.PrincipalRepository)),
	newMembershipRepository,
	wire.Bind(new(rbac.MembershipRepository), new(*dynamo.MembershipRepository)),
	newRoleRepository,
	wire.Bind(new(rbac.RoleRepository), new(*dynamo.RoleRepository)),
)

var domainSet = wire.NewSet(
	principal.NewService,
	rbac.NewEvaluator,
	rbac.NewAdmin,
)

var httpSet = wire.NewSet(
	newCodec,
	newSessionGate,
	authhandler.NewTokenHandler,
	wire.Bind(new(authhandler.TokenIssuer), new(*cognito.Client)),
	wire.Bind(new(authhandler.PrincipalEnsurer), new(*principal.Service)),
	rolehandler.NewRoleHandler,
	teamhandler.NewTeamHandler,
	wire.Bind(new(teamhandler.PermissionChecker), new(*rbac.Evaluator)),
	httpserver.New,
)

// BuildApplication assembles the inventory API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		newLogger,
		newVerifier,
		cognito.NewClient,
		storeSet,
		domainSet,
		httpSet,
		NewApplication,
	)
	return nil, nil
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logger.New(cfg.LogLevel, cfg.LogFormat)
}

func newVerifier(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.CognitoVerifier, error) {
	return auth.NewCognitoVerifier(
		ctx,
		cfg.JWKSURL(),
		cfg.CognitoIssuer(),
		cfg.CognitoClientID,
		cfg.RefreshJWKSInterval,
		cfg.ClockSkew,
		log,
	)
}

func newPrincipalRepository(client *dynamodb.Client, cfg *config.Config) *dynamo.PrincipalRepository {
	return dynamo.NewPrincipalRepository(client, cfg.TableName)
}

func newMembershipRepository(client *dynamodb.Client, cfg *config.Config) *dynamo.MembershipRepository {
	return dynamo.NewMembershipRepository(client, cfg.TableName)
}

func newRoleRepository(client *dynamodb.Client, cfg *config.Config) *dynamo.RoleRepository {
	return dynamo.NewRoleRepository(client, cfg.TableName)
}

func newCodec(cfg *config.Config) session.Codec {
	return session.Codec{CrossSite: cfg.CrossSiteCookies}
}

func newSessionGate(
	verifier *auth.CognitoVerifier,
	reconciler *principal.Service,
	evaluator *rbac.Evaluator,
	log zerolog.Logger,
) gin.HandlerFunc {
	return middlewares.SessionGate(verifier, reconciler, evaluator, log)
}
