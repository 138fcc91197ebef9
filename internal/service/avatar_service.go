package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/media/sniffer"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/security"
)

const defaultMaxAvatarSize = 2 << 20

// ObjectPutter is the subset of the object store the avatar flow needs.
type ObjectPutter interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

type AvatarService struct {
	users   repository.UserStore
	objects ObjectPutter
	secret  string
	maxSize int64
	log     zerolog.Logger
	now     func() time.Time
}

// NewAvatarService accepts a nil objects store; uploads then fail with Unavailable.
func NewAvatarService(users repository.UserStore, objects ObjectPutter, secret string, maxSize int64, log zerolog.Logger) *AvatarService {
	if maxSize <= 0 {
		maxSize = defaultMaxAvatarSize
	}
	return &AvatarService{
		users:   users,
		objects: objects,
		secret:  secret,
		maxSize: maxSize,
		log:     log.With().Str("component", "avatar").Logger(),
		now:     time.Now,
	}
}

type AvatarInput struct {
	User models.User
	File io.Reader
}

// Upload stores the image and points the user's profile at it.
func (s *AvatarService) Upload(ctx context.Context, input AvatarInput) (models.User, error) {
	if s.objects == nil {
		return models.User{}, apperr.Unavailable("Image storage is not configured")
	}

	kind, head, err := sniffer.Detect(input.File)
	if err != nil {
		if errors.Is(err, sniffer.ErrUnknownType) {
			return models.User{}, apperr.Validation("Unsupported image type",
				apperr.FieldError{Field: "file", Message: "must be a PNG, JPEG, GIF or WebP image"})
		}
		return models.User{}, apperr.Internal(fmt.Errorf("read upload: %w", err))
	}

	body, err := io.ReadAll(io.LimitReader(io.MultiReader(bytes.NewReader(head), input.File), s.maxSize+1))
	if err != nil {
		return models.User{}, apperr.Internal(fmt.Errorf("read upload: %w", err))
	}
	if int64(len(body)) > s.maxSize {
		return models.User{}, apperr.Validation("Image too large",
			apperr.FieldError{Field: "file", Message: fmt.Sprintf("must be at most %d bytes", s.maxSize)})
	}

	userID := strconv.FormatInt(input.User.ID, 10)
	stamp := strconv.FormatInt(s.now().UnixNano(), 10)
	key := "avatars/" + userID + "/" + security.SignResource(s.secret, userID, stamp) + kind.Extension()

	url, err := s.objects.Put(ctx, key, bytes.NewReader(body), int64(len(body)), kind.MIME)
	if err != nil {
		return models.User{}, apperr.Internal(err)
	}
	if err := s.users.UpdateImage(ctx, input.User.ID, url); err != nil {
		return models.User{}, apperr.Internal(fmt.Errorf("update user image: %w", err))
	}
	s.log.Info().Int64("user_id", input.User.ID).Str("key", key).Msg("avatar stored")

	user := input.User
	user.ImageURL = &url
	return user, nil
}
