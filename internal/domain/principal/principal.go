// Package principal provides the application user model and the
// reconciliation that keeps identity-provider subjects backed by a store
// record.
package principal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fieldstock/inventory-api/internal/utils/idgen"
)

// Principal models an application user keyed by the identity provider
// subject.
type Principal struct {
	SubjectID   string
	Username    string
	DisplayName string
	Email       string
	RoleLabel   string
	AccountID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Summary is the shape handed to API responses.
type Summary struct {
	SubjectID   string `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"name,omitempty"`
	RoleLabel   string `json:"role,omitempty"`
	AccountID   string `json:"accountId,omitempty"`
}

// Summary projects the principal for API responses.
func (p *Principal) Summary() Summary {
	return Summary{
		SubjectID:   p.SubjectID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		RoleLabel:   p.RoleLabel,
		AccountID:   p.AccountID,
	}
}

// Repository defines storage operations for principals. GetBySubject
// returns (nil, nil) when no record exists.
type Repository interface {
	GetBySubject(ctx context.Context, subjectID string) (*Principal, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateUsername(ctx context.Context, subjectID, username string, updatedAt time.Time) error
	UpdateAccountID(ctx context.Context, subjectID, accountID string, updatedAt time.Time) error
	Create(ctx context.Context, principal *Principal) error
}

// ErrEmptySubject indicates a missing subject id on reconciliation.
var ErrEmptySubject = errors.New("subject id must not be empty")

const (
	usernameSuffixLength = 6
	// Collision retries before giving up. The numeric suffix makes a
	// genuine exhaustion here practically impossible.
	usernameMaxAttempts = 50

	defaultRoleLabel = "User"
)

// Service reconciles identity-provider subjects into store records.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService constructs a Service with required dependencies.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "principal-service").Logger(),
	}
}

// Ensure makes sure a complete record exists for the subject and returns
// it. Complete records are returned without any write; partial records get
// the missing field repaired; absent records are created in full.
func (s *Service) Ensure(ctx context.Context, subjectID string) (*Principal, error) {
	if subjectID == "" {
		return nil, ErrEmptySubject
	}

	existing, err := s.repo.GetBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return s.repair(ctx, existing)
	}

	username, err := s.availableUsername(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created := &Principal{
		SubjectID: subjectID,
		Username:  username,
		RoleLabel: defaultRoleLabel,
		AccountID: uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, created); err != nil {
		return nil, err
	}

	s.logger.Info().Str("subject_id", subjectID).Str("username", username).Msg("principal created")
	return created, nil
}

func (s *Service) repair(ctx context.Context, p *Principal) (*Principal, error) {
	if p.Username == "" {
		username, err := s.availableUsername(ctx)
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		if err := s.repo.UpdateUsername(ctx, p.SubjectID, username, now); err != nil {
			return nil, err
		}
		p.Username = username
		p.UpdatedAt = now
		s.logger.Info().Str("subject_id", p.SubjectID).Str("username", username).Msg("backfilled username")
	}

	if p.AccountID == "" {
		accountID := uuid.NewString()
		now := time.Now().UTC()
		if err := s.repo.UpdateAccountID(ctx, p.SubjectID, accountID, now); err != nil {
			return nil, err
		}
		p.AccountID = accountID
		p.UpdatedAt = now
		s.logger.Info().Str("subject_id", p.SubjectID).Msg("backfilled account id")
	}

	return p, nil
}

// availableUsername generates a random base name, then walks numeric
// suffixes until the store reports it unseen.
func (s *Service) availableUsername(ctx context.Context) (string, error) {
	suffix, err := idgen.Suffix(usernameSuffixLength)
	if err != nil {
		return "", err
	}
	base := "user-" + suffix

	candidate := base
	for attempt := 1; attempt <= usernameMaxAttempts; attempt++ {
		exists, err := s.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(attempt)
	}

	return "", fmt.Errorf("no available username after %d attempts", usernameMaxAttempts)
}
