package dynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/fieldstock/inventory-api/internal/domain/principal"
	"github.com/fieldstock/inventory-api/internal/domain/rbac"
)

// fakeAPI stores items keyed by "PK|SK" and records the requests it saw.
type fakeAPI struct {
	items map[string]map[string]types.AttributeValue

	lastUpdate *dynamodb.UpdateItemInput
	lastQuery  *dynamodb.QueryInput
	queryItems []map[string]types.AttributeValue
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: map[string]map[string]types.AttributeValue{}}
}

func itemKey(item map[string]types.AttributeValue) string {
	pk := item["PK"].(*types.AttributeValueMemberS).Value
	sk := item["SK"].(*types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func (f *fakeAPI) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(params.Key)]}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.items[itemKey(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) UpdateItem(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.lastUpdate = params
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	delete(f.items, itemKey(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeAPI) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQuery = params
	return &dynamodb.QueryOutput{Items: f.queryItems}, nil
}

func TestPrincipalRepositoryRoundTrip(t *testing.T) {
	api := newFakeAPI()
	repo := NewPrincipalRepository(api, "inventory")
	ctx := context.Background()

	got, err := repo.GetBySubject(ctx, "sub-1")
	if err != nil {
		t.Fatalf("GetBySubject() error = %v", err)
	}
	if got != nil {
		t.Fatalf("GetBySubject() on empty store = %+v, want nil", got)
	}

	now := time.Now().UTC().Truncate(time.Second)
	p := &principal.Principal{
		SubjectID: "sub-1",
		Username:  "user-abc123",
		RoleLabel: "User",
		AccountID: "acct-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, ok := api.items["USER#sub-1|METADATA"]; !ok {
		t.Fatalf("stored under wrong key, have %v", keysOf(api.items))
	}

	got, err = repo.GetBySubject(ctx, "sub-1")
	if err != nil {
		t.Fatalf("GetBySubject() error = %v", err)
	}
	if got == nil || got.Username != "user-abc123" || got.AccountID != "acct-1" {
		t.Errorf("round trip = %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
}

func TestPrincipalRepositoryTargetedUpdates(t *testing.T) {
	api := newFakeAPI()
	repo := NewPrincipalRepository(api, "inventory")
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.UpdateUsername(ctx, "sub-1", "user-x", now); err != nil {
		t.Fatalf("UpdateUsername() error = %v", err)
	}
	expr := *api.lastUpdate.UpdateExpression
	if expr != "SET username = :username, updatedAt = :updatedAt" {
		t.Errorf("update expression = %q", expr)
	}

	if err := repo.UpdateAccountID(ctx, "sub-1", "acct-9", now); err != nil {
		t.Fatalf("UpdateAccountID() error = %v", err)
	}
	expr = *api.lastUpdate.UpdateExpression
	if expr != "SET accountId = :accountId, updatedAt = :updatedAt" {
		t.Errorf("update expression = %q", expr)
	}
}

func TestUsernameExistsQueriesIndex(t *testing.T) {
	api := newFakeAPI()
	repo := NewPrincipalRepository(api, "inventory")
	ctx := context.Background()

	exists, err := repo.UsernameExists(ctx, "alice")
	if err != nil {
		t.Fatalf("UsernameExists() error = %v", err)
	}
	if exists {
		t.Error("empty index reported username taken")
	}
	if got := *api.lastQuery.IndexName; got != usersByUsernameIndex {
		t.Errorf("IndexName = %q", got)
	}

	api.queryItems = []map[string]types.AttributeValue{{
		"username": &types.AttributeValueMemberS{Value: "alice"},
	}}
	exists, err = repo.UsernameExists(ctx, "alice")
	if err != nil {
		t.Fatalf("UsernameExists() error = %v", err)
	}
	if !exists {
		t.Error("populated index reported username free")
	}
}

func TestMembershipRepositoryRoundTrip(t *testing.T) {
	api := newFakeAPI()
	repo := NewMembershipRepository(api, "inventory")
	ctx := context.Background()

	got, err := repo.Get(ctx, "team-1", "sub-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Fatal("Get() on empty store should be nil")
	}

	m := &rbac.Membership{
		ScopeID:   "team-1",
		SubjectID: "sub-1",
		RoleID:    "MANAGER",
		AddedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.Put(ctx, m); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, ok := api.items["TEAM#team-1|MEMBER#sub-1"]; !ok {
		t.Fatalf("stored under wrong key, have %v", keysOf(api.items))
	}

	got, err = repo.Get(ctx, "team-1", "sub-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.RoleID != "MANAGER" {
		t.Errorf("round trip = %+v", got)
	}

	if err := repo.Delete(ctx, "team-1", "sub-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, err = repo.Get(ctx, "team-1", "sub-1")
	if err != nil || got != nil {
		t.Errorf("after delete: %+v, %v", got, err)
	}
}

func TestRoleRepositoryRoundTrip(t *testing.T) {
	api := newFakeAPI()
	repo := NewRoleRepository(api, "inventory")
	ctx := context.Background()

	role := &rbac.Role{
		ID:          "AUDITOR",
		Name:        "Auditor",
		Permissions: []rbac.Permission{rbac.PermItemView, rbac.PermReportsView},
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
		UpdatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.Put(ctx, role); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, ok := api.items["ROLE#AUDITOR|METADATA"]; !ok {
		t.Fatalf("stored under wrong key, have %v", keysOf(api.items))
	}

	got, err := repo.Get(ctx, "AUDITOR")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || len(got.Permissions) != 2 || got.Permissions[0] != rbac.PermItemView {
		t.Errorf("round trip = %+v", got)
	}

	missing, err := repo.Get(ctx, "GHOST")
	if err != nil || missing != nil {
		t.Errorf("missing role: %+v, %v", missing, err)
	}
}

func TestRoleRepositoryList(t *testing.T) {
	api := newFakeAPI()
	repo := NewRoleRepository(api, "inventory")
	ctx := context.Background()

	stored, err := attributevalue.MarshalMap(roleItem{
		PK:          "ROLE#OWNER",
		SK:          "METADATA",
		EntityType:  "ROLE",
		Name:        "Owner",
		Permissions: []string{"item.view"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	api.queryItems = []map[string]types.AttributeValue{stored}

	roles, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(roles) != 1 || roles[0].ID != "OWNER" {
		t.Errorf("List() = %+v", roles)
	}
	if got := *api.lastQuery.IndexName; got != entityTypeIndex {
		t.Errorf("IndexName = %q", got)
	}
}

func keysOf(m map[string]map[string]types.AttributeValue) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
