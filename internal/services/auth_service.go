package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"mechanical_shop/internal/auth"
	"mechanical_shop/internal/models"
	"mechanical_shop/internal/repository"

	"github.com/jaevor/go-nanoid"
	log "github.com/sirupsen/logrus"
)

const (
	oauthStateTTL     = 10 * time.Minute
	oauthStateLength  = 32
	defaultGoogleName = "Google User"
)

// GoogleIdentity resolves Google sign-ins into profiles.
type GoogleIdentity interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GoogleProfile, error)
	VerifyIDToken(ctx context.Context, rawIDToken string) (*auth.GoogleProfile, error)
}

// StateStore keeps one-time OAuth state values.
type StateStore interface {
	SaveState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeState(ctx context.Context, state string) (bool, error)
}

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
	Phone    string `json:"phone"`
}

type UserView struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FullName  string          `json:"fullName"`
	Phone     string          `json:"phone,omitempty"`
	AvatarURL string          `json:"avatarUrl,omitempty"`
	Role      models.UserRole `json:"role"`
}

func newUserView(u *models.User) UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
	}
}

// AuthResult serializes as the user plus the flattened token pair.
type AuthResult struct {
	User UserView `json:"user"`
	*auth.TokenPair
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
	GoogleAuthURL(ctx context.Context) (string, error)
	GoogleCallback(ctx context.Context, state, code string) (*AuthResult, error)
	GoogleMobile(ctx context.Context, idToken string) (*AuthResult, error)
	DeepLink(result *AuthResult) (string, error)
}

type authService struct {
	store    repository.Store
	tokens   *auth.JWTManager
	hasher   *auth.PasswordHasher
	google   GoogleIdentity
	states   StateStore
	deepLink string
	newState func() string
}

func NewAuthService(store repository.Store, tokens *auth.JWTManager, hasher *auth.PasswordHasher, google GoogleIdentity, states StateStore, deepLink string) (AuthService, error) {
	generate, err := nanoid.Standard(oauthStateLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create state generator: %w", err)
	}

	return &authService{
		store:    store,
		tokens:   tokens,
		hasher:   hasher,
		google:   google,
		states:   states,
		deepLink: deepLink,
		newState: generate,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	if email == "" || fullName == "" {
		return nil, fmt.Errorf("%w: email and fullName are required", ErrInvalidInput)
	}
	if len(input.Password) < auth.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, auth.MinPasswordLength)
	}

	_, err := s.store.Users().GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Phone:        strings.TrimSpace(input.Phone),
		Role:         models.RoleUser,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.WithFields(log.Fields{"user_id": user.ID, "email": user.Email}).Info("User registered")
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.HasPassword() || !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refreshToken is required", ErrInvalidInput)
	}

	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return s.tokens.IssuePair(identityOf(user))
}

func (s *authService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) GoogleAuthURL(ctx context.Context) (string, error) {
	state := s.newState()
	if err := s.states.SaveState(ctx, state, oauthStateTTL); err != nil {
		return "", fmt.Errorf("failed to save oauth state: %w", err)
	}
	return s.google.AuthCodeURL(state), nil
}

func (s *authService) GoogleCallback(ctx context.Context, state, code string) (*AuthResult, error) {
	if state == "" || code == "" {
		return nil, ErrInvalidOAuthState
	}

	ok, err := s.states.ConsumeState(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to check oauth state: %w", err)
	}
	if !ok {
		return nil, ErrInvalidOAuthState
	}

	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		log.WithError(err).Warn("Google code exchange failed")
		return nil, ErrInvalidCredentials
	}

	return s.signInWithGoogle(ctx, profile)
}

func (s *authService) GoogleMobile(ctx context.Context, idToken string) (*AuthResult, error) {
	if idToken == "" {
		return nil, fmt.Errorf("%w: idToken is required", ErrInvalidInput)
	}

	profile, err := s.google.VerifyIDToken(ctx, idToken)
	if err != nil {
		log.WithError(err).Warn("Google ID token rejected")
		return nil, ErrInvalidCredentials
	}

	return s.signInWithGoogle(ctx, profile)
}

// signInWithGoogle finds the account by Google subject, then links by email, else creates one.
func (s *authService) signInWithGoogle(ctx context.Context, profile *auth.GoogleProfile) (*AuthResult, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	email := normalizeEmail(profile.Email)

	user, err := s.store.Users().GetByGoogleID(ctx, profile.Subject)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	subject := profile.Subject
	user, err = s.store.Users().GetByEmail(ctx, email)
	switch {
	case err == nil:
		user.GoogleID = &subject
		if user.AvatarURL == "" {
			user.AvatarURL = profile.Picture
		}
		if err := s.store.Users().Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to link google account: %w", err)
		}
		log.WithField("user_id", user.ID).Info("Linked Google account")

	case errors.Is(err, repository.ErrNotFound):
		name := strings.TrimSpace(profile.Name)
		if name == "" {
			name = defaultGoogleName
		}
		user = &models.User{
			Email:     email,
			FullName:  name,
			AvatarURL: profile.Picture,
			GoogleID:  &subject,
			Role:      models.RoleUser,
		}
		if err := s.store.Users().Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		log.WithField("user_id", user.ID).Info("Created user from Google sign-in")

	default:
		return nil, err
	}

	return s.issue(user)
}

// DeepLink builds the app redirect carrying the tokens and the user as JSON.
func (s *authService) DeepLink(result *AuthResult) (string, error) {
	user, err := json.Marshal(result.User)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("accessToken", result.AccessToken)
	q.Set("refreshToken", result.RefreshToken)
	q.Set("user", string(user))

	sep := "?"
	if strings.Contains(s.deepLink, "?") {
		sep = "&"
	}
	return s.deepLink + sep + q.Encode(), nil
}

func (s *authService) issue(user *models.User) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(identityOf(user))
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: newUserView(user), TokenPair: pair}, nil
}

func identityOf(user *models.User) auth.Identity {
	return auth.Identity{UserID: user.ID, Email: user.Email, Role: string(user.Role)}
}
