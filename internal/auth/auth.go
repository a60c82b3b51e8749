package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUnknownIdentity    = errors.New("unknown identity")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const DefaultTokenTTL = 24 * time.Hour

// Claims is the token payload. Username is the identity.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Directory answers whether an identity has an account.
type Directory interface {
	Exists(identity string) bool
}

// Verifier checks HS256 session tokens.
type Verifier struct {
	secret []byte
	dir    Directory
}

func NewVerifier(secret []byte, dir Directory) *Verifier {
	return &Verifier{secret: secret, dir: dir}
}

// Verify returns the identity carried by token. The identity must still
// exist in the directory.
func (v *Verifier) Verify(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", ErrTokenExpired
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Username == "" {
		return "", fmt.Errorf("%w: missing username", ErrInvalidToken)
	}
	if v.dir != nil && !v.dir.Exists(claims.Username) {
		return "", fmt.Errorf("%w: %s", ErrUnknownIdentity, claims.Username)
	}

	return claims.Username, nil
}

// CredentialStore returns the bcrypt password hash of an identity.
type CredentialStore interface {
	PasswordHash(identity string) (string, error)
}

// Issuer checks passwords and signs session tokens.
type Issuer struct {
	secret []byte
	creds  CredentialStore
	ttl    time.Duration
	now    func() time.Time
}

type IssuerOpt func(*Issuer)

func WithTokenTTL(d time.Duration) IssuerOpt {
	return func(i *Issuer) {
		i.ttl = d
	}
}

func WithClock(now func() time.Time) IssuerOpt {
	return func(i *Issuer) {
		i.now = now
	}
}

func NewIssuer(secret []byte, creds CredentialStore, opts ...IssuerOpt) *Issuer {
	i := &Issuer{
		secret: secret,
		creds:  creds,
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Login verifies password against the stored hash and issues a token.
func (i *Issuer) Login(identity, password string) (string, error) {
	hash, err := i.creds.PasswordHash(identity)
	if err != nil || hash == "" {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return i.Issue(identity)
}

// Issue signs a token for identity without checking credentials.
func (i *Issuer) Issue(identity string) (string, error) {
	now := i.now()
	claims := Claims{
		Username: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// HashPassword returns the bcrypt hash stored in profiles.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
