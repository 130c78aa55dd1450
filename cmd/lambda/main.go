// Lambda entrypoint. The gin engine is built once per cold start and
// proxied through the API Gateway v2 adapter; Set-Cookie values produced
// by handlers are collected in a per-invocation buffer and merged into
// the response cookies field.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/joho/godotenv"

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

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := auth.NewCognitoVerifier(
		ctx,
		cfg.JWKSURL(),
		cfg.CognitoIssuer(),
		cfg.CognitoClientID,
		cfg.RefreshJWKSInterval,
		cfg.ClockSkew,
		log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize token verifier")
	}

	dynamoClient, err := dynamo.NewClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize dynamodb client")
	}

	issuer, err := cognito.NewClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize identity provider client")
	}

	principals := dynamo.NewPrincipalRepository(dynamoClient, cfg.TableName)
	members := dynamo.NewMembershipRepository(dynamoClient, cfg.TableName)
	roles := dynamo.NewRoleRepository(dynamoClient, cfg.TableName)

	reconciler := principal.NewService(principals, log)
	evaluator := rbac.NewEvaluator(members, roles)
	admin := rbac.NewAdmin(roles, log)

	if cfg.SeedDefaultRoles {
		if err := admin.SeedDefaults(ctx); err != nil {
			log.Fatal().Err(err).Msg("seed default roles")
		}
	}

	codec := session.Codec{CrossSite: cfg.CrossSiteCookies}
	gate := middlewares.SessionGate(verifier, reconciler, evaluator, log)

	tokenHandler := authhandler.NewTokenHandler(issuer, reconciler, codec, log)
	roleHandler := rolehandler.NewRoleHandler(admin, log)
	teamHandler := teamhandler.NewTeamHandler(members, evaluator, log)

	server := httpserver.New(cfg, log, verifier, gate, tokenHandler, roleHandler, teamHandler)
	adapter := ginadapter.NewV2(server.Engine())

	handler := func(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		buf := &session.CookieBuffer{}
		ctx = session.WithEventTransport(ctx, event, buf)

		resp, err := adapter.ProxyWithContext(ctx, event)
		if err != nil {
			return resp, err
		}

		resp.Cookies = append(resp.Cookies, buf.Headers()...)
		return resp, nil
	}

	log.Info().Msg("inventory-api lambda handler ready")
	lambda.StartWithOptions(handler, lambda.WithContext(ctx))
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
