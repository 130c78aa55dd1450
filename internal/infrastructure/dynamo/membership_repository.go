package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/fieldstock/inventory-api/internal/domain/rbac"
)

type membershipItem struct {
	PK      string `dynamodbav:"PK"`
	SK      string `dynamodbav:"SK"`
	Role    string `dynamodbav:"role"`
	AddedAt string `dynamodbav:"addedAt,omitempty"`
}

// MembershipRepository stores scope memberships in the single table.
type MembershipRepository struct {
	api   API
	table string
}

// NewMembershipRepository constructs a MembershipRepository.
func NewMembershipRepository(api API, table string) *MembershipRepository {
	return &MembershipRepository{api: api, table: table}
}

func membershipKey(scopeID, subjectID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: teamKeyPrefix + scopeID},
		"SK": &types.AttributeValueMemberS{Value: memberKeyPrefix + subjectID},
	}
}

// Get returns the membership row, (nil, nil) when absent.
func (r *MembershipRepository) Get(ctx context.Context, scopeID, subjectID string) (*rbac.Membership, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       membershipKey(scopeID, subjectID),
	})
	if err != nil {
		return nil, fmt.Errorf("get membership %s/%s: %w", scopeID, subjectID, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item membershipItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal membership %s/%s: %w", scopeID, subjectID, err)
	}
	return item.toDomain(scopeID, subjectID), nil
}

// Put writes a membership row.
func (r *MembershipRepository) Put(ctx context.Context, m *rbac.Membership) error {
	item := membershipItem{
		PK:      teamKeyPrefix + m.ScopeID,
		SK:      memberKeyPrefix + m.SubjectID,
		Role:    m.RoleID,
		AddedAt: m.AddedAt.Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal membership %s/%s: %w", m.ScopeID, m.SubjectID, err)
	}

	if _, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put membership %s/%s: %w", m.ScopeID, m.SubjectID, err)
	}
	return nil
}

// Delete removes a membership row.
func (r *MembershipRepository) Delete(ctx context.Context, scopeID, subjectID string) error {
	if _, err := r.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       membershipKey(scopeID, subjectID),
	}); err != nil {
		return fmt.Errorf("delete membership %s/%s: %w", scopeID, subjectID, err)
	}
	return nil
}

// ListByScope returns all memberships of a scope.
func (r *MembershipRepository) ListByScope(ctx context.Context, scopeID string) ([]rbac.Membership, error) {
	out, err := r.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :member)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: teamKeyPrefix + scopeID},
			":member": &types.AttributeValueMemberS{Value: memberKeyPrefix},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list memberships %s: %w", scopeID, err)
	}

	memberships := make([]rbac.Membership, 0, len(out.Items))
	for _, raw := range out.Items {
		var item membershipItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("unmarshal membership in %s: %w", scopeID, err)
		}
		subjectID := item.SK[len(memberKeyPrefix):]
		memberships = append(memberships, *item.toDomain(scopeID, subjectID))
	}
	return memberships, nil
}

func (i membershipItem) toDomain(scopeID, subjectID string) *rbac.Membership {
	m := &rbac.Membership{
		ScopeID:   scopeID,
		SubjectID: subjectID,
		RoleID:    i.Role,
	}
	if t, err := time.Parse(time.RFC3339, i.AddedAt); err == nil {
		m.AddedAt = t
	}
	return m
}
