package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
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

type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

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

	httpServer := httpserver.New(cfg, log, verifier, gate, tokenHandler, roleHandler, teamHandler)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
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
