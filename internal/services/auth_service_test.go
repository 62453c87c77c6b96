package services

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"mechanical_shop/internal/auth"
	"mechanical_shop/internal/mocks"
	"mechanical_shop/internal/models"
	"mechanical_shop/internal/repository"
	"mechanical_shop/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type authFixture struct {
	db     *gorm.DB
	svc    AuthService
	tokens *auth.JWTManager
	google *mocks.MockGoogleIdentity
	states *mocks.MockStateStore
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db := testutil.NewDB(t)
	tokens := auth.NewJWTManager(auth.JWTConfig{
		AccessSecret:         "access-secret",
		RefreshSecret:        "refresh-secret",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "mechanical-shop-test",
	})
	google := &mocks.MockGoogleIdentity{}
	states := &mocks.MockStateStore{}

	svc, err := NewAuthService(repository.NewStore(db), tokens, auth.NewPasswordHasher(bcrypt.MinCost),
		google, states, "mechanicalshop://auth-callback")
	require.NoError(t, err)

	return &authFixture{db: db, svc: svc, tokens: tokens, google: google, states: states}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.svc.Register(ctx, RegisterInput{
		Email:    " Buyer@Example.com ",
		Password: "secret1",
		FullName: "Le Van C",
	})
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", result.User.Email)
	assert.Equal(t, models.RoleUser, result.User.Role)

	claims, err := f.tokens.ValidateAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, "user", claims.Role)

	_, err = f.svc.Register(ctx, RegisterInput{Email: "buyer@example.com", Password: "secret1", FullName: "X"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	login, err := f.svc.Login(ctx, "BUYER@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, login.User.ID)

	_, err = f.svc.Login(ctx, "buyer@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@b.co", Password: "12345", FullName: "A"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Register(context.Background(), RegisterInput{Email: "a@b.co", Password: "123456", FullName: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuthService_Refresh(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.svc.Register(ctx, RegisterInput{Email: "r@example.com", Password: "secret1", FullName: "R"})
	require.NoError(t, err)

	pair, err := f.svc.Refresh(ctx, result.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = f.svc.Refresh(ctx, result.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_LoginRejectsGoogleOnlyAccount(t *testing.T) {
	f := newAuthFixture(t)
	testutil.CreateUser(t, f.db, "google@example.com")

	_, err := f.svc.Login(context.Background(), "google@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_GoogleMobile(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	existing := testutil.CreateUser(t, f.db, "linked@example.com")

	f.google.On("VerifyIDToken", mock.Anything, "new-token").
		Return(&auth.GoogleProfile{Subject: "g-1", Email: "fresh@example.com", Name: "Fresh"}, nil)
	f.google.On("VerifyIDToken", mock.Anything, "link-token").
		Return(&auth.GoogleProfile{Subject: "g-2", Email: "Linked@example.com"}, nil)
	f.google.On("VerifyIDToken", mock.Anything, "no-email").
		Return(&auth.GoogleProfile{Subject: "g-3"}, nil)
	f.google.On("VerifyIDToken", mock.Anything, "bad").
		Return(nil, errors.New("token expired"))

	created, err := f.svc.GoogleMobile(ctx, "new-token")
	require.NoError(t, err)
	assert.Equal(t, "fresh@example.com", created.User.Email)
	assert.Equal(t, "Fresh", created.User.FullName)

	again, err := f.svc.GoogleMobile(ctx, "new-token")
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, again.User.ID)

	linked, err := f.svc.GoogleMobile(ctx, "link-token")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.User.ID)

	var user models.User
	require.NoError(t, f.db.First(&user, "id = ?", existing.ID).Error)
	require.NotNil(t, user.GoogleID)
	assert.Equal(t, "g-2", *user.GoogleID)

	_, err = f.svc.GoogleMobile(ctx, "no-email")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.GoogleMobile(ctx, "bad")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_GoogleRedirectFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	var state string
	f.states.On("SaveState", mock.Anything, mock.AnythingOfType("string"), 10*time.Minute).
		Run(func(args mock.Arguments) { state = args.String(1) }).
		Return(nil)
	f.google.On("AuthCodeURL", mock.Anything).Return("https://accounts.google.com/o/oauth2/auth?state=x")

	authURL, err := f.svc.GoogleAuthURL(ctx)
	require.NoError(t, err)
	assert.Contains(t, authURL, "accounts.google.com")
	require.NotEmpty(t, state)

	f.states.On("ConsumeState", mock.Anything, state).Return(true, nil).Once()
	f.states.On("ConsumeState", mock.Anything, "stale").Return(false, nil)
	f.google.On("Exchange", mock.Anything, "code-1").
		Return(&auth.GoogleProfile{Subject: "g-9", Email: "web@example.com", Name: "Web"}, nil)

	_, err = f.svc.GoogleCallback(ctx, "stale", "code-1")
	assert.ErrorIs(t, err, ErrInvalidOAuthState)

	result, err := f.svc.GoogleCallback(ctx, state, "code-1")
	require.NoError(t, err)

	link, err := f.svc.DeepLink(result)
	require.NoError(t, err)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "mechanicalshop", parsed.Scheme)
	assert.Equal(t, result.AccessToken, parsed.Query().Get("accessToken"))
	assert.Equal(t, result.RefreshToken, parsed.Query().Get("refreshToken"))
	assert.Contains(t, parsed.Query().Get("user"), `"email":"web@example.com"`)
}
