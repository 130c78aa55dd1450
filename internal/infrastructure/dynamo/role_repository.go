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

type roleItem struct {
	PK          string   `dynamodbav:"PK"`
	SK          string   `dynamodbav:"SK"`
	EntityType  string   `dynamodbav:"entityType"`
	Name        string   `dynamodbav:"name"`
	Description string   `dynamodbav:"description,omitempty"`
	Permissions []string `dynamodbav:"permissions,omitempty"`
	CreatedAt   string   `dynamodbav:"createdAt,omitempty"`
	UpdatedAt   string   `dynamodbav:"updatedAt,omitempty"`
}

// RoleRepository stores roles in the single table.
type RoleRepository struct {
	api   API
	table string
}

// NewRoleRepository constructs a RoleRepository.
func NewRoleRepository(api API, table string) *RoleRepository {
	return &RoleRepository{api: api, table: table}
}

func roleKey(roleID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: roleKeyPrefix + roleID},
		"SK": &types.AttributeValueMemberS{Value: metadataSK},
	}
}

// Get returns the role, (nil, nil) when absent.
func (r *RoleRepository) Get(ctx context.Context, roleID string) (*rbac.Role, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       roleKey(roleID),
	})
	if err != nil {
		return nil, fmt.Errorf("get role %s: %w", roleID, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item roleItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal role %s: %w", roleID, err)
	}
	return item.toDomain(roleID), nil
}

// Put writes a role record.
func (r *RoleRepository) Put(ctx context.Context, role *rbac.Role) error {
	perms := make([]string, 0, len(role.Permissions))
	for _, perm := range role.Permissions {
		perms = append(perms, string(perm))
	}

	item := roleItem{
		PK:          roleKeyPrefix + role.ID,
		SK:          metadataSK,
		EntityType:  "ROLE",
		Name:        role.Name,
		Description: role.Description,
		Permissions: perms,
		CreatedAt:   role.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   role.UpdatedAt.Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal role %s: %w", role.ID, err)
	}

	if _, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put role %s: %w", role.ID, err)
	}
	return nil
}

// Delete removes a role record.
func (r *RoleRepository) Delete(ctx context.Context, roleID string) error {
	if _, err := r.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       roleKey(roleID),
	}); err != nil {
		return fmt.Errorf("delete role %s: %w", roleID, err)
	}
	return nil
}

// List returns all roles via the entity-type index.
func (r *RoleRepository) List(ctx context.Context) ([]rbac.Role, error) {
	out, err := r.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(entityTypeIndex),
		KeyConditionExpression: aws.String("entityType = :role"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":role": &types.AttributeValueMemberS{Value: "ROLE"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	roles := make([]rbac.Role, 0, len(out.Items))
	for _, raw := range out.Items {
		var item roleItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("unmarshal role: %w", err)
		}
		roleID := item.PK[len(roleKeyPrefix):]
		roles = append(roles, *item.toDomain(roleID))
	}
	return roles, nil
}

func (i roleItem) toDomain(roleID string) *rbac.Role {
	perms := make([]rbac.Permission, 0, len(i.Permissions))
	for _, perm := range i.Permissions {
		perms = append(perms, rbac.Permission(perm))
	}

	role := &rbac.Role{
		ID:          roleID,
		Name:        i.Name,
		Description: i.Description,
		Permissions: perms,
	}
	if t, err := time.Parse(time.RFC3339, i.CreatedAt); err == nil {
		role.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, i.UpdatedAt); err == nil {
		role.UpdatedAt = t
	}
	return role
}
