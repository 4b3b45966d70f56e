package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"driver-punch-api-server/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidRole        = errors.New("role must be admin or driver")
	ErrAdminSignUpClosed  = errors.New("admin accounts cannot be created by sign-up")
	ErrDriverRequired     = errors.New("driverId is required for driver accounts")
	ErrUnknownDriver      = errors.New("driver not found or inactive")
	ErrDriverLinked       = errors.New("driver already has an account")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

// UserStore persists application users.
type UserStore interface {
	Insert(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByDriverID(ctx context.Context, driverID string) (*models.User, error)
}

// DriverLookup resolves an external driver id.
type DriverLookup interface {
	Lookup(ctx context.Context, driverID string) (*models.Driver, error)
}

// Service is the identity gate: sign-up, sign-in, sign-out and token resolution.
type Service struct {
	users            UserStore
	drivers          DriverLookup
	tokens           *TokenManager
	revoker          Revoker
	allowAdminSignUp bool
	log              *slog.Logger
}

func NewService(users UserStore, drivers DriverLookup, tokens *TokenManager, revoker Revoker, allowAdminSignUp bool, log *slog.Logger) *Service {
	return &Service{
		users:            users,
		drivers:          drivers,
		tokens:           tokens,
		revoker:          revoker,
		allowAdminSignUp: allowAdminSignUp,
		log:              log,
	}
}

type SignUpInput struct {
	Email    string
	Password string
	Role     models.Role
	DriverID string
}

// Session is what a successful sign-in hands back to the client.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates the user record. The role is fixed from here on.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) < 6 {
		return nil, ErrWeakPassword
	}
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}

	user := models.User{Email: email, Role: in.Role, CreatedAt: time.Now().UTC()}
	switch in.Role {
	case models.RoleAdmin:
		if !s.allowAdminSignUp {
			return nil, ErrAdminSignUpClosed
		}
	case models.RoleDriver:
		driverID := strings.TrimSpace(in.DriverID)
		if driverID == "" {
			return nil, ErrDriverRequired
		}
		d, err := s.drivers.Lookup(ctx, driverID)
		if err != nil || !d.Active {
			return nil, ErrUnknownDriver
		}
		existing, err := s.users.FindByDriverID(ctx, driverID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("check driver link: %w", err)
		}
		if existing != nil {
			return nil, ErrDriverLinked
		}
		user.DriverID = driverID
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.Password = hash

	if err := s.users.Insert(ctx, &user); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user signed up", "userId", user.ID.Hex(), "role", user.Role, "driverId", user.DriverID)
	return &user, nil
}

// SignIn checks credentials and issues a token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.log.Error("sign-in lookup failed", "error", err)
		}
		return nil, ErrInvalidCredentials
	}
	if !CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	token, claims, err := s.tokens.Generate(*user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: *user}, nil
}

// SignOut revokes the token until its expiry.
func (s *Service) SignOut(ctx context.Context, claims *JWTClaims) error {
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Authenticate parses a token and rejects revoked ones.
func (s *Service) Authenticate(ctx context.Context, token string) (*JWTClaims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Fail closed: a token we cannot check is not accepted.
		s.log.Error("revocation check failed", "error", err)
		return nil, ErrInvalidToken
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	if claims.Role == models.RoleDriver {
		// Driver tokens act for claims.DriverID; the account must still be linked to it.
		user, err := s.users.FindByID(ctx, claims.UserID)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				s.log.Error("account check failed", "error", err)
			}
			return nil, ErrInvalidToken
		}
		if user.DriverID != claims.DriverID {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// Resolve maps a token to the application user record behind it.
func (s *Service) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}
