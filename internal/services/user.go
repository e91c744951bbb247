package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/iheejigoro/apiserver/internal/auth"
	"github.com/iheejigoro/apiserver/internal/storage"
	"github.com/iheejigoro/apiserver/internal/store"
	"github.com/iheejigoro/apiserver/internal/validation"
	"github.com/iheejigoro/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const usersFolder = "users"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type TokenIssuer interface {
	Issue(claims auth.Claims) (string, error)
}

type RegisterInput struct {
	NameOfVendor string `json:"nameofvendor" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6,max=30,maxbytes=72"`
	Password2    string `json:"password2" validate:"omitempty,eqfield=Password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate holds the editable profile fields. Empty fields keep their
// current value.
type ProfileUpdate struct {
	NameOfVendor string        `json:"nameofvendor" validate:"omitempty,min=3"`
	Phone        string        `json:"phone" validate:"omitempty,len=10,numeric"`
	State        string        `json:"state" validate:"omitempty,min=3"`
	Sex          string        `json:"sex" validate:"omitempty,oneof=male female"`
	Avatar       *storage.File `json:"-"`
}

// LoginResult is returned on successful authentication. Token already
// carries the "Bearer " prefix.
type LoginResult struct {
	Token string
	User  types.User
}

// UserService encapsulates registration, login and profile use-cases.
type UserService struct {
	repo      UserRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	media     storage.MediaHost
	validator *validation.Validator
	events    *Events
	folder    string
	logger    *slog.Logger
}

func NewUserService(
	repo UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	media storage.MediaHost,
	events *Events,
	mediaFolder string,
	logger *slog.Logger,
) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		media:     media,
		validator: validation.New(),
		events:    events,
		folder:    path.Join(mediaFolder, usersFolder),
		logger:    logger,
	}
}

// Register validates the payload, rejects taken emails, hashes the password
// and stores the new user. The returned user never exposes the hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	in.NameOfVendor = strings.TrimSpace(in.NameOfVendor)
	in.Email = normalizeEmail(in.Email)
	if fields, ok := s.validator.Validate(in); !ok {
		return types.User{}, newValidationError(fields)
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return types.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return types.User{}, newValidationError(map[string]string{"password": "Password is too long (max 72 bytes)"})
		}
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Email:        in.Email,
		PasswordHash: hash,
		NameOfVendor: in.NameOfVendor,
	})
	if err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, store.ErrAlreadyExists) {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}

	s.events.emit(ctx, types.EventUserRegistered, user.ID, user.ID, user)
	return user, nil
}

// Login checks the credentials and issues a token carrying a snapshot of
// the user's profile.
func (s *UserService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	in.Email = normalizeEmail(in.Email)
	if fields, ok := s.validator.Validate(in); !ok {
		return LoginResult{}, newValidationError(fields)
	}

	user, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		return LoginResult{}, err
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.ClaimsFromUser(user))
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	return LoginResult{Token: "Bearer " + token, User: user}, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile merges in over the stored profile of targetID. Only the
// user themself may do this. A new avatar replaces the old one; the old
// image is deleted only after the record is saved.
func (s *UserService) UpdateProfile(ctx context.Context, actorID, targetID string, in ProfileUpdate) (types.User, error) {
	if actorID == "" || actorID != targetID {
		return types.User{}, ErrForbidden
	}

	in.NameOfVendor = strings.TrimSpace(in.NameOfVendor)
	in.Phone = strings.TrimSpace(in.Phone)
	in.State = strings.TrimSpace(in.State)
	in.Sex = strings.ToLower(strings.TrimSpace(in.Sex))
	if fields, ok := s.validator.Validate(in); !ok {
		return types.User{}, newValidationError(fields)
	}

	user, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return types.User{}, err
	}

	user.NameOfVendor = coalesce(in.NameOfVendor, user.NameOfVendor)
	user.Phone = coalesce(in.Phone, user.Phone)
	user.State = coalesce(in.State, user.State)
	user.Sex = coalesce(in.Sex, user.Sex)

	oldAvatar := user.Avatar
	var newAvatar types.Image
	if in.Avatar != nil {
		newAvatar, err = s.media.Upload(ctx, s.folder, *in.Avatar)
		if err != nil {
			return types.User{}, fmt.Errorf("%w: upload avatar: %v", ErrMedia, err)
		}
		user.Avatar = newAvatar
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		if !newAvatar.IsZero() {
			s.discardMedia(ctx, newAvatar)
		}
		return types.User{}, fmt.Errorf("update user: %w", err)
	}

	if !newAvatar.IsZero() && !oldAvatar.IsZero() {
		s.discardMedia(ctx, oldAvatar)
	}

	s.events.emit(ctx, types.EventUserUpdated, updated.ID, actorID, updated)
	return updated, nil
}

func (s *UserService) discardMedia(ctx context.Context, img types.Image) {
	if err := s.media.Delete(ctx, img.ReferenceID); err != nil {
		s.logger.WarnContext(ctx, "delete media failed", "reference_id", img.ReferenceID, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func coalesce(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
