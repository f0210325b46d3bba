package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	repo "github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

type UserService struct {
	Repo       repo.UserRepository
	JWT        *helpers.JWTManager
	Sessions   SessionStore
	SessionTTL time.Duration
	OTP        *OTPService
	Tasks      *TaskService
	GCS        *storage.Client
	GCSBucket  string
	Logger     *logrus.Logger

	// upload is swapped in tests; defaults to a GCS upload.
	upload func(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func NewUserService(r repo.UserRepository, jwt *helpers.JWTManager, sessions SessionStore, sessionTTL time.Duration, otp *OTPService, tasks *TaskService, gcs *storage.Client, gcsBucket string, logger *logrus.Logger) *UserService {
	s := &UserService{
		Repo:       r,
		JWT:        jwt,
		Sessions:   sessions,
		SessionTTL: sessionTTL,
		OTP:        otp,
		Tasks:      tasks,
		GCS:        gcs,
		GCSBucket:  gcsBucket,
		Logger:     logger,
	}
	s.upload = s.uploadToGCS
	return s
}

// hashPassword reports bcrypt's byte limit as invalid input; binding counts
// characters, so multibyte passwords can pass it and still be too long.
func hashPassword(plain string) (string, error) {
	hash, err := helpers.HashPassword(plain)
	if errors.Is(err, helpers.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, helpers.MaxPasswordBytes)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a user account and sends a verification code. The code is
// best effort: a failed issue is logged and the account is still returned.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicate
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Email:    email,
		Password: hash,
		Name:     strings.TrimSpace(in.Name),
		Role:     entity.RoleUser,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.OTP != nil {
		if _, err := s.OTP.Issue(ctx, u, entity.PurposeVerify); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("send verification after register failed")
		}
	}
	return u, nil
}

// Login checks the credentials and opens a session. An unknown email is
// ErrNotFound; a wrong password is ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*entity.User, TokenPair, error) {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, TokenPair{}, ErrNotFound
	}
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("lookup email: %w", err)
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// IssueTokens generates access/refresh tokens and records the session.
func (s *UserService) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, u.Role.String(), sid)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		}
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, u.Role.String(), sid)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate refresh token failed")
		}
		return TokenPair{}, err
	}

	if s.Sessions != nil {
		sess := Session{
			UserID:    u.ID,
			SID:       sid,
			Email:     u.Email,
			Name:      u.Name,
			Role:      u.Role.String(),
			CreatedAt: time.Now().UTC(),
		}
		if err := s.Sessions.Save(ctx, sess, s.SessionTTL); err != nil {
			return TokenPair{}, fmt.Errorf("save session: %w", err)
		}
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// Authenticate resolves an access token to its claims. The token must be valid
// and its session id must still be the current session of the user.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*helpers.Claims, error) {
	if accessToken == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.JWT.ParseAccessToken(accessToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if err := s.checkSession(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *UserService) checkSession(ctx context.Context, claims *helpers.Claims) error {
	if s.Sessions == nil {
		return nil
	}
	sess, err := s.Sessions.Get(ctx, claims.UserID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", claims.UserID).Warn("session lookup failed")
		}
		return ErrUnauthenticated
	}
	if sess == nil || sess.SID != claims.SessionID {
		return ErrUnauthenticated
	}
	return nil
}

// Refresh rotates the session id and both tokens.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*entity.User, TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, TokenPair{}, ErrUnauthenticated
	}
	if err := s.checkSession(ctx, claims); err != nil {
		return nil, TokenPair{}, err
	}
	u, err := s.Repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, TokenPair{}, ErrUnauthenticated
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

func (s *UserService) Logout(ctx context.Context, userID string) error {
	if s.Sessions == nil {
		return nil
	}
	return s.Sessions.Delete(ctx, userID)
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

type UpdateProfileInput struct {
	Name      string
	AvatarURL string
}

// UpdateProfile changes the non-empty fields of in.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		u.Name = name
	}
	if in.AvatarURL != "" {
		u.AvatarURL = in.AvatarURL
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// UploadAvatar stores the image in the bucket and saves its public URL on the profile.
func (s *UserService) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", userID, uuid.NewString()+ext))
	url, err := s.upload(ctx, objectPath, contentType, r)
	if err != nil {
		return "", err
	}
	u.AvatarURL = url
	if err := s.Repo.Update(ctx, u); err != nil {
		return "", fmt.Errorf("update user: %w", err)
	}
	return url, nil
}

func (s *UserService) uploadToGCS(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return "", fmt.Errorf("%w: avatar bucket not configured", ErrStorageUnavailable)
	}
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return url, nil
}

// DeleteAccount removes the user and everything hanging off it: tasks (by
// cascade), cached task entries, search documents and the session.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	var taskIDs []string
	if s.Tasks != nil {
		taskIDs = s.Tasks.OwnedIDs(ctx, userID)
	}
	if err := s.Repo.Delete(ctx, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if s.Tasks != nil {
		s.Tasks.ForgetUser(ctx, userID, taskIDs)
	}
	if s.Sessions != nil {
		if err := s.Sessions.Delete(ctx, userID); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("delete session failed")
		}
	}
	return nil
}

// ListUsers returns one page of accounts and the total count.
func (s *UserService) ListUsers(ctx context.Context, page, limit int) ([]entity.User, int, error) {
	page, limit = NormalizePage(page, limit)
	users, total, err := s.Repo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// SetRole changes the role of an account. The target's session is revoked so
// the new role takes effect on the next login.
func (s *UserService) SetRole(ctx context.Context, userID string, role entity.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidInput, entity.ErrUnknownRole)
	}
	if err := s.Repo.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update role: %w", err)
	}
	if s.Sessions != nil {
		if err := s.Sessions.Delete(ctx, userID); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("revoke session after role change failed")
		}
	}
	return nil
}
