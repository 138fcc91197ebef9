package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/ids"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/security"
)

const minPasswordLength = 6

type AuthService struct {
	users    repository.UserStore
	sessions repository.SessionStore
	cfg      config.SecurityConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(stores repository.Stores, cfg config.SecurityConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    stores.Users,
		sessions: stores.Sessions,
		cfg:      cfg,
		log:      log.With().Str("component", "auth").Logger(),
		now:      time.Now,
	}
}

type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	Role      string
	IPAddress string
	UserAgent string
	// ByAdmin is set when an authenticated admin creates the account; only then may Role be admin.
	ByAdmin bool
}

type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
	SessionID string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	role := models.UserRole(strings.ToLower(strings.TrimSpace(input.Role)))
	if role == "" {
		role = models.UserRoleUser
	}

	var problems []apperr.FieldError
	if n := len([]rune(input.Name)); n < 2 || n > 50 {
		problems = append(problems, apperr.FieldError{Field: "name", Message: "must be 2 to 50 characters"})
	}
	if _, err := mail.ParseAddress(input.Email); err != nil || input.Email == "" {
		problems = append(problems, apperr.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if len(input.Password) < minPasswordLength {
		problems = append(problems, apperr.FieldError{Field: "password", Message: "must be at least 6 characters"})
	}
	if !role.Valid() {
		problems = append(problems, apperr.FieldError{Field: "role", Message: "must be admin or user"})
	}
	if len(problems) > 0 {
		return AuthResult{}, apperr.Validation("Invalid registration", problems...)
	}
	if role == models.UserRoleAdmin && !input.ByAdmin {
		return AuthResult{}, apperr.Forbidden("Only an administrator can create admin accounts")
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return AuthResult{}, apperr.Conflict("User with this email already exists")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, apperr.Internal(fmt.Errorf("find user: %w", err))
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}

	user := models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return AuthResult{}, apperr.Conflict("User with this email already exists")
		}
		return AuthResult{}, apperr.Internal(fmt.Errorf("create user: %w", err))
	}
	s.log.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")

	return s.createSession(ctx, user, input.IPAddress, input.UserAgent)
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, apperr.InvalidCredentials()
		}
		return AuthResult{}, apperr.Internal(fmt.Errorf("find user: %w", err))
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, apperr.InvalidCredentials()
	}

	if security.NeedsRehash(user.PasswordHash) {
		if hash, err := security.HashPassword(input.Password); err == nil {
			if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
				s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("rehash legacy password")
			}
		}
	}

	return s.createSession(ctx, user, input.IPAddress, input.UserAgent)
}

// Authenticate resolves a bearer token to its live session and user.
func (s *AuthService) Authenticate(ctx context.Context, token, ip, userAgent string) (models.User, *security.AccessClaims, error) {
	claims, err := security.ParseAccessToken(token, s.cfg.JWTSecret)
	if err != nil {
		return models.User{}, nil, apperr.Unauthorized("Invalid or expired token")
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil || session.UserID != claims.UserID || session.ExpiresAt.Before(s.now()) {
		return models.User{}, nil, apperr.Unauthorized("Session expired")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return models.User{}, nil, apperr.Unauthorized("User not found")
	}

	if err := s.sessions.Touch(ctx, session.ID, ip, userAgent); err != nil {
		s.log.Debug().Err(err).Str("session_id", session.ID).Msg("touch session")
	}
	return user, claims, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return apperr.Internal(fmt.Errorf("delete session: %w", err))
	}
	return nil
}

type ChangePasswordInput struct {
	UserID          int64
	SessionID       string
	CurrentPassword string
	NewPassword     string
}

// ChangePassword keeps the calling session and revokes every other session of the user.
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	if len(input.NewPassword) < minPasswordLength {
		return apperr.Validation("Invalid password",
			apperr.FieldError{Field: "newPassword", Message: "must be at least 6 characters"})
	}

	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.NotFound("User not found")
		}
		return apperr.Internal(err)
	}
	ok, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash)
	if err != nil || !ok {
		return apperr.Validation("Current password is incorrect",
			apperr.FieldError{Field: "currentPassword", Message: "is incorrect"})
	}

	hash, err := security.HashPassword(input.NewPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return apperr.Internal(fmt.Errorf("update password: %w", err))
	}
	if err := s.sessions.DeleteOthers(ctx, user.ID, input.SessionID); err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("revoke other sessions")
	}
	return nil
}

func (s *AuthService) createSession(ctx context.Context, user models.User, ip, userAgent string) (AuthResult, error) {
	now := s.now().UTC()
	session := models.Session{
		ID:         ids.New(),
		UserID:     user.ID,
		IPAddress:  ip,
		UserAgent:  userAgent,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.cfg.JWTTTL),
	}

	token, err := security.GenerateAccessToken(s.cfg.JWTSecret, user.ID, session.ID, string(user.Role), s.cfg.JWTTTL)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, apperr.Internal(fmt.Errorf("create session: %w", err))
	}

	if err := s.enforceSessionLimit(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("enforce session limit failed")
	}

	return AuthResult{Token: token, ExpiresAt: session.ExpiresAt, User: user, SessionID: session.ID}, nil
}

func (s *AuthService) enforceSessionLimit(ctx context.Context, userID int64) error {
	if s.cfg.MaxSessions <= 0 {
		return nil
	}
	count, err := s.sessions.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count <= s.cfg.MaxSessions {
		return nil
	}
	return s.sessions.DeleteOldestSessions(ctx, userID, s.cfg.MaxSessions)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
