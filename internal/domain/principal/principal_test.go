package principal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeRepo struct {
	records   map[string]*Principal
	usernames map[string]bool

	getErr    error
	createErr error

	writes int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records:   map[string]*Principal{},
		usernames: map[string]bool{},
	}
}

func (f *fakeRepo) GetBySubject(_ context.Context, subjectID string) (*Principal, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if p, ok := f.records[subjectID]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, nil
}

func (f *fakeRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	return f.usernames[username], nil
}

func (f *fakeRepo) UpdateUsername(_ context.Context, subjectID, username string, updatedAt time.Time) error {
	f.writes++
	p := f.records[subjectID]
	p.Username = username
	p.UpdatedAt = updatedAt
	f.usernames[username] = true
	return nil
}

func (f *fakeRepo) UpdateAccountID(_ context.Context, subjectID, accountID string, updatedAt time.Time) error {
	f.writes++
	p := f.records[subjectID]
	p.AccountID = accountID
	p.UpdatedAt = updatedAt
	return nil
}

func (f *fakeRepo) Create(_ context.Context, p *Principal) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.writes++
	clone := *p
	f.records[p.SubjectID] = &clone
	f.usernames[p.Username] = true
	return nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, zerolog.Nop())
}

func TestEnsureCreatesAbsentRecord(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	got, err := svc.Ensure(context.Background(), "subject-1")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if got.SubjectID != "subject-1" {
		t.Errorf("SubjectID = %q", got.SubjectID)
	}
	if !strings.HasPrefix(got.Username, "user-") {
		t.Errorf("Username = %q, want user- prefix", got.Username)
	}
	if got.RoleLabel != "User" {
		t.Errorf("RoleLabel = %q, want User", got.RoleLabel)
	}
	if got.AccountID == "" {
		t.Error("AccountID not assigned")
	}
	if !got.CreatedAt.Equal(got.UpdatedAt) {
		t.Errorf("CreatedAt %v != UpdatedAt %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestEnsureIdempotentOnCompleteRecord(t *testing.T) {
	repo := newFakeRepo()
	existing := &Principal{
		SubjectID: "subject-1",
		Username:  "alice",
		RoleLabel: "Owner",
		AccountID: "acct-1",
		CreatedAt: time.Now().Add(-time.Hour),
		UpdatedAt: time.Now().Add(-time.Hour),
	}
	repo.records["subject-1"] = existing
	svc := newTestService(repo)

	for i := 0; i < 3; i++ {
		got, err := svc.Ensure(context.Background(), "subject-1")
		if err != nil {
			t.Fatalf("Ensure() error = %v", err)
		}
		if got.Username != "alice" || got.RoleLabel != "Owner" || got.AccountID != "acct-1" {
			t.Errorf("record mutated: %+v", got)
		}
	}
	if repo.writes != 0 {
		t.Errorf("complete record triggered %d writes, want 0", repo.writes)
	}
}

func TestEnsureBackfillsUsername(t *testing.T) {
	repo := newFakeRepo()
	repo.records["subject-1"] = &Principal{
		SubjectID: "subject-1",
		AccountID: "acct-1",
		RoleLabel: "User",
	}
	svc := newTestService(repo)

	got, err := svc.Ensure(context.Background(), "subject-1")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if !strings.HasPrefix(got.Username, "user-") {
		t.Errorf("Username = %q", got.Username)
	}
	if repo.writes != 1 {
		t.Errorf("writes = %d, want 1 targeted update", repo.writes)
	}
	if repo.records["subject-1"].AccountID != "acct-1" {
		t.Error("account id clobbered by username repair")
	}
}

func TestEnsureBackfillsAccountID(t *testing.T) {
	repo := newFakeRepo()
	repo.records["subject-1"] = &Principal{
		SubjectID: "subject-1",
		Username:  "alice",
		RoleLabel: "User",
	}
	svc := newTestService(repo)

	got, err := svc.Ensure(context.Background(), "subject-1")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if got.AccountID == "" {
		t.Error("AccountID not backfilled")
	}
	if got.Username != "alice" {
		t.Errorf("Username changed to %q", got.Username)
	}
	if repo.writes != 1 {
		t.Errorf("writes = %d, want 1", repo.writes)
	}
}

func TestEnsureUsernameCollisionWalksSuffixes(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	// Every candidate "exists" until the suffixed third attempt.
	collisions := 0
	repo.usernames = nil
	repoAll := &collidingRepo{fakeRepo: repo, collideFirst: 2, collisions: &collisions}
	svc = NewService(repoAll, zerolog.Nop())

	got, err := svc.Ensure(context.Background(), "subject-1")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if collisions != 2 {
		t.Errorf("collisions consulted = %d, want 2", collisions)
	}
	if !strings.HasSuffix(got.Username, "2") {
		t.Errorf("Username = %q, want numeric suffix 2", got.Username)
	}
}

type collidingRepo struct {
	*fakeRepo
	collideFirst int
	collisions   *int
}

func (c *collidingRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	if *c.collisions < c.collideFirst {
		*c.collisions++
		return true, nil
	}
	return false, nil
}

func (c *collidingRepo) Create(_ context.Context, p *Principal) error {
	clone := *p
	c.records[p.SubjectID] = &clone
	return nil
}

func TestEnsureEmptySubject(t *testing.T) {
	svc := newTestService(newFakeRepo())
	if _, err := svc.Ensure(context.Background(), ""); !errors.Is(err, ErrEmptySubject) {
		t.Fatalf("Ensure(\"\") error = %v, want ErrEmptySubject", err)
	}
}

func TestEnsureStoreErrorPropagates(t *testing.T) {
	repo := newFakeRepo()
	repo.getErr = errors.New("dynamo unavailable")
	svc := newTestService(repo)

	if _, err := svc.Ensure(context.Background(), "subject-1"); err == nil {
		t.Fatal("Ensure() expected store error")
	}

	repo = newFakeRepo()
	repo.createErr = errors.New("write throttled")
	svc = newTestService(repo)
	if _, err := svc.Ensure(context.Background(), "subject-1"); err == nil {
		t.Fatal("Ensure() expected create error")
	}
}
