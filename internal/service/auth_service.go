package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/api/idtoken"

	"github.com/rabble-claw/studio-coop/internal/domain"
	"github.com/rabble-claw/studio-coop/internal/repository/ports"
	"github.com/rabble-claw/studio-coop/internal/util"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthService issues and validates staff session tokens. Member-facing auth
// lives in the main platform; this service only guards the admin API.
type AuthService struct {
	users       ports.UserRepository
	memberships ports.MembershipRepository
	tokens      *util.JWTManager
	googleAud   string
}

func NewAuthService(users ports.UserRepository, memberships ports.MembershipRepository, tokens *util.JWTManager, googleAud string) *AuthService {
	return &AuthService{
		users:       users,
		memberships: memberships,
		tokens:      tokens,
		googleAud:   googleAud,
	}
}

func (s *AuthService) LoginWithEmail(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !util.VerifyPassword(password, user.PasswordSalt, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, _, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// LoginWithGoogle validates a Google ID token and signs in the matching
// account, creating one on first login.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idTok string) (string, *domain.User, error) {
	payload, err := idtoken.Validate(ctx, idTok, s.googleAud)
	if err != nil {
		return "", nil, ErrInvalidToken
	}
	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if email == "" {
		return "", nil, ErrInvalidToken
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		var fullName *string
		if name != "" {
			fullName = &name
		}
		user, err = s.users.Create(ctx, email, fullName, nil)
	}
	if err != nil {
		return "", nil, err
	}

	token, _, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// IsOrgStaff reports whether the user holds a staff or owner membership in
// the organization.
func (s *AuthService) IsOrgStaff(ctx context.Context, userID, orgID uuid.UUID) (bool, error) {
	membership, err := s.memberships.FindByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return membership.CanManageOrg(), nil
}
