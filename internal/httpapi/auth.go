package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"spazapos/backend/internal/domain"
	"spazapos/backend/internal/store"
)

var (
	errInvalidCredentials = errors.New("invalid username or password")
	errInvalidToken       = errors.New("invalid or expired token")
)

const tokenIssuer = "spazapos"

// tillClaims is the JWT payload issued to till operators. UserID travels in a
// private claim so movement and void rows can be attributed without a second
// lookup.
type tillClaims struct {
	jwtlib.RegisteredClaims
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
}

// AuthManager issues and validates operator tokens against the account store.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    store.Repository
}

func NewAuthManager(secret string, tokenTTL time.Duration, users store.Repository) *AuthManager {
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
	}
}

// Login verifies the password and returns a signed access token. Inactive
// accounts are rejected with the same error as bad credentials so probing a
// disabled username reveals nothing.
func (m *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return domain.LoginResponse{}, errInvalidCredentials
	}
	account, err := m.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResponse{}, errInvalidCredentials
		}
		return domain.LoginResponse{}, fmt.Errorf("look up account: %w", err)
	}
	if !account.Active || !verifyPassword(account.Password, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}

	// Hand-seeded rows may still hold plaintext; upgrade them on first use.
	if !isPasswordHash(account.Password) {
		if hash, err := hashPassword(req.Password); err == nil {
			_ = m.users.UpdateUserPassword(ctx, account.Username, hash)
		}
	}

	expiresAt := time.Now().Add(m.tokenTTL)
	claims := tillClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   account.Username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
		UserID: account.ID,
		Role:   account.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return domain.LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}
	return domain.LoginResponse{
		AccessToken: signed,
		Role:        account.Role,
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// ParseToken validates a bearer token and returns the acting operator.
func (m *AuthManager) ParseToken(tokenString string) (domain.Actor, error) {
	claims := &tillClaims{}
	token, err := jwtlib.ParseWithClaims(tokenString, claims, func(t *jwtlib.Token) (any, error) {
		return m.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return domain.Actor{}, errInvalidToken
	}
	if claims.Role != domain.RoleAdmin && claims.Role != domain.RoleCashier {
		return domain.Actor{}, errInvalidToken
	}
	return domain.Actor{
		UserID:   claims.UserID,
		Username: claims.Subject,
		Role:     claims.Role,
	}, nil
}

// CreateCashier registers a new cashier account. Only the username and a
// bcrypt hash of the password are persisted.
func (m *AuthManager) CreateCashier(ctx context.Context, username, password string) (domain.UserAccount, error) {
	username = strings.TrimSpace(username)
	if len(username) < 4 || strings.ContainsFunc(username, unicode.IsSpace) {
		return domain.UserAccount{}, fmt.Errorf("%w: username must be at least 4 characters with no spaces", store.ErrValidation)
	}
	if len(password) < 6 {
		return domain.UserAccount{}, fmt.Errorf("%w: password must be at least 6 characters", store.ErrValidation)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("hash password: %w", err)
	}
	if err := m.users.CreateUser(ctx, domain.UserAccount{
		Username: username,
		Password: hash,
		Role:     domain.RoleCashier,
		Active:   true,
	}); err != nil {
		return domain.UserAccount{}, err
	}
	account, err := m.users.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.UserAccount{}, err
	}
	out := *account
	out.Password = ""
	return out, nil
}

// ListCashiers returns every account with the password hash blanked.
func (m *AuthManager) ListCashiers(ctx context.Context) ([]domain.UserAccount, error) {
	accounts, err := m.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].Password = ""
	}
	return accounts, nil
}

func hashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(stored, supplied string) bool {
	if !isPasswordHash(stored) {
		// Legacy plaintext rows from hand-seeded tills.
		return stored == supplied
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") ||
		strings.HasPrefix(value, "$2b$") ||
		strings.HasPrefix(value, "$2y$")
}
