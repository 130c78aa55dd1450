package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/fieldstock/inventory-api/internal/domain/principal"
)

// principalItem is the stored shape of a user record.
type principalItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	UID       string `dynamodbav:"uid"`
	Username  string `dynamodbav:"username,omitempty"`
	Name      string `dynamodbav:"name,omitempty"`
	Email     string `dynamodbav:"email,omitempty"`
	Role      string `dynamodbav:"role,omitempty"`
	AccountID string `dynamodbav:"accountId,omitempty"`
	CreatedAt string `dynamodbav:"createdAt,omitempty"`
	UpdatedAt string `dynamodbav:"updatedAt,omitempty"`
}

// PrincipalRepository stores principals in the single table.
type PrincipalRepository struct {
	api   API
	table string
}

// NewPrincipalRepository constructs a PrincipalRepository.
func NewPrincipalRepository(api API, table string) *PrincipalRepository {
	return &PrincipalRepository{api: api, table: table}
}

func userKey(subjectID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: userKeyPrefix + subjectID},
		"SK": &types.AttributeValueMemberS{Value: metadataSK},
	}
}

// GetBySubject returns the principal record, (nil, nil) when absent.
func (r *PrincipalRepository) GetBySubject(ctx context.Context, subjectID string) (*principal.Principal, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       userKey(subjectID),
	})
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", subjectID, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item principalItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal user %s: %w", subjectID, err)
	}
	return item.toDomain(), nil
}

// UsernameExists consults the username index.
func (r *PrincipalRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	out, err := r.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(usersByUsernameIndex),
		KeyConditionExpression: aws.String("username = :username"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":username": &types.AttributeValueMemberS{Value: username},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("query username %s: %w", username, err)
	}
	return len(out.Items) > 0, nil
}

// UpdateUsername writes just the username and updatedAt fields.
func (r *PrincipalRepository) UpdateUsername(ctx context.Context, subjectID, username string, updatedAt time.Time) error {
	_, err := r.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.table),
		Key:              userKey(subjectID),
		UpdateExpression: aws.String("SET username = :username, updatedAt = :updatedAt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":username":  &types.AttributeValueMemberS{Value: username},
			":updatedAt": &types.AttributeValueMemberS{Value: updatedAt.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("update username for %s: %w", subjectID, err)
	}
	return nil
}

// UpdateAccountID writes just the accountId and updatedAt fields.
func (r *PrincipalRepository) UpdateAccountID(ctx context.Context, subjectID, accountID string, updatedAt time.Time) error {
	_, err := r.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.table),
		Key:              userKey(subjectID),
		UpdateExpression: aws.String("SET accountId = :accountId, updatedAt = :updatedAt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":accountId": &types.AttributeValueMemberS{Value: accountID},
			":updatedAt": &types.AttributeValueMemberS{Value: updatedAt.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("update account id for %s: %w", subjectID, err)
	}
	return nil
}

// Create writes a full user record.
func (r *PrincipalRepository) Create(ctx context.Context, p *principal.Principal) error {
	item := principalItem{
		PK:        userKeyPrefix + p.SubjectID,
		SK:        metadataSK,
		UID:       p.SubjectID,
		Username:  p.Username,
		Name:      p.DisplayName,
		Email:     p.Email,
		Role:      p.RoleLabel,
		AccountID: p.AccountID,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal user %s: %w", p.SubjectID, err)
	}

	if _, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put user %s: %w", p.SubjectID, err)
	}
	return nil
}

func (i principalItem) toDomain() *principal.Principal {
	p := &principal.Principal{
		SubjectID:   i.UID,
		Username:    i.Username,
		DisplayName: i.Name,
		Email:       i.Email,
		RoleLabel:   i.Role,
		AccountID:   i.AccountID,
	}
	if t, err := time.Parse(time.RFC3339, i.CreatedAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, i.UpdatedAt); err == nil {
		p.UpdatedAt = t
	}
	return p
}
