package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/internal/platform/metrics"
	"github.com/bloodbank/bloodbank/pkg/dates"
)

type Service struct {
	repo        Repository
	tokens      *auth.TokenIssuer
	revocations auth.RevocationList
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	hashCost    int
}

func NewService(repo Repository, tokens *auth.TokenIssuer, revocations auth.RevocationList, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		tokens:      tokens,
		revocations: revocations,
		metrics:     m,
		logger:      logger,
		hashCost:    bcrypt.DefaultCost,
	}
}

// SetHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *Service) SetHashCost(cost int) {
	s.hashCost = cost
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Register creates a donor or patient account. Admin accounts are only made
// with CreateUser.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if in.Role != auth.RoleDonor && in.Role != auth.RolePatient {
		return nil, invalid("role must be donor or patient")
	}
	return s.CreateUser(ctx, in)
}

// CreateUser validates the input, hashes the password and stores the user.
func (s *Service) CreateUser(ctx context.Context, in RegisterInput) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)

	switch {
	case in.Username == "":
		return nil, invalid("username is required")
	case in.Email == "":
		return nil, invalid("email is required")
	case in.FullName == "":
		return nil, invalid("full_name is required")
	case len(in.Password) < MinPasswordLen:
		return nil, invalid("password must be at least %d characters", MinPasswordLen)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, invalid("email is not valid")
	}
	switch in.Role {
	case auth.RoleAdmin, auth.RoleDonor, auth.RolePatient:
	default:
		return nil, invalid("unknown role %q", in.Role)
	}
	if in.Gender != "" && !validGenders[in.Gender] {
		return nil, invalid("gender must be male, female or other")
	}

	u := &User{
		Username:   in.Username,
		Email:      in.Email,
		Role:       in.Role,
		FullName:   in.FullName,
		Phone:      optional(in.Phone),
		Address:    optional(in.Address),
		BloodGroup: in.BloodGroup,
		Gender:     optional(in.Gender),
		Active:     true,
	}
	if in.DateOfBirth != "" {
		dob, err := dates.Parse(in.DateOfBirth)
		if err != nil {
			return nil, invalid("date_of_birth: %v", err)
		}
		u.DateOfBirth = &dob
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("role", u.Role).Msg("user registered")
	return u, nil
}

// Authenticate checks the credentials and issues an access token. Unknown
// users, wrong passwords and inactive accounts are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*auth.Token, *User, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		s.metrics.IncLogin(false)
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil || !u.Active {
		s.metrics.IncLogin(false)
		s.logger.Warn().Str("username", u.Username).Bool("active", u.Active).Msg("login rejected")
		return nil, nil, ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(u.ID.String(), u.Username, u.Role)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.IncLogin(true)
	return tok, u, nil
}

// Logout revokes the caller's token until it would have expired.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" || s.revocations == nil {
		return nil
	}
	expiresAt := time.Now()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.revocations.Revoke(ctx, claims.ID, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileUpdate) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FullName) != "" {
		u.FullName = strings.TrimSpace(in.FullName)
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return nil, invalid("email is not valid")
		}
		u.Email = in.Email
	}
	u.Phone = optional(in.Phone)
	u.Address = optional(in.Address)
	if in.BloodGroup.Valid() {
		u.BloodGroup = in.BloodGroup
	}
	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ListByRole(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	if role != auth.RoleDonor && role != auth.RolePatient && role != auth.RoleAdmin {
		return nil, 0, invalid("unknown role %q", role)
	}
	return s.repo.ListByRole(ctx, role, limit, offset)
}

func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", id.String()).Bool("active", active).Msg("account status changed")
	return nil
}

// CountActive returns the number of active accounts with role.
func (s *Service) CountActive(ctx context.Context, role string) (int, error) {
	return s.repo.CountActive(ctx, role)
}

// EnsureUser creates the user unless the username is already taken. It backs
// the seed command.
func (s *Service) EnsureUser(ctx context.Context, in RegisterInput) (*User, bool, error) {
	if existing, err := s.repo.GetByUsername(ctx, in.Username); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	u, err := s.CreateUser(ctx, in)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}
