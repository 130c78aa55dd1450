// Package dynamo implements the single-table DynamoDB store behind the
// domain repository interfaces.
package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"

	"github.com/fieldstock/inventory-api/internal/config"
)

// API is the subset of the DynamoDB client the repositories use.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Single-table key layout.
const (
	userKeyPrefix   = "USER#"
	teamKeyPrefix   = "TEAM#"
	roleKeyPrefix   = "ROLE#"
	memberKeyPrefix = "MEMBER#"
	metadataSK      = "METADATA"

	usersByUsernameIndex = "GSI_UsersByUsername"
	entityTypeIndex      = "GSI_EntityType"
)

// NewClient builds a DynamoDB client from configuration. An endpoint
// override plus static credentials selects a local instance.
func NewClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*dynamodb.Client, error) {
	logger := log.With().Str("component", "dynamo").Logger()

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

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
		}
	})

	if cfg.DynamoEndpoint != "" {
		logger.Info().Str("endpoint", cfg.DynamoEndpoint).Msg("using local dynamodb endpoint")
	}

	return client, nil
}
