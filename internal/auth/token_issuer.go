package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

var (
	errMissingSigningSecret = errors.New("signing secret must be provided")
	errMissingSubjectClaim  = errors.New("subject claim must be provided")

	// ErrWrongTokenUse indicates a refresh token presented where an
	// access token was expected, or vice versa.
	ErrWrongTokenUse = errors.New("auth: wrong token use")
)

// TokenIssuerConfig configures the JWT issuer for the API.
type TokenIssuerConfig struct {
	SigningSecret []byte
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Clock         func() time.Time
}

// TokenClaims is the JWT payload carried by both token kinds. TokenUse
// distinguishes access tokens from refresh tokens so one can never
// stand in for the other.
type TokenClaims struct {
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// TokenPair bundles a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// ValidatedToken reports the outcome of a successful validation.
type ValidatedToken struct {
	Subject   string
	ID        string
	ExpiresAt time.Time
}

// TokenIssuer issues and validates HS256 JWTs for authenticated users.
type TokenIssuer struct {
	config TokenIssuerConfig
	clock  func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer with sane defaults.
func NewTokenIssuer(cfg TokenIssuerConfig) *TokenIssuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	cfg.Clock = clock
	return &TokenIssuer{config: cfg, clock: clock}
}

// IssueTokens produces a signed access/refresh pair for the subject.
// ExpiresIn reports the access token lifetime in seconds.
func (i *TokenIssuer) IssueTokens(subject string) (TokenPair, error) {
	access, expiresIn, err := i.IssueAccessToken(subject)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.issue(subject, tokenUseRefresh, i.config.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: expiresIn}, nil
}

// IssueAccessToken produces a signed access token and its lifetime in
// seconds for the validated subject.
func (i *TokenIssuer) IssueAccessToken(subject string) (string, int64, error) {
	signed, err := i.issue(subject, tokenUseAccess, i.config.AccessTTL)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(i.config.AccessTTL.Seconds()), nil
}

// ValidateAccessToken ensures the token is a well-formed access token
// and returns its subject, jti and expiry.
func (i *TokenIssuer) ValidateAccessToken(tokenString string) (ValidatedToken, error) {
	return i.validate(tokenString, tokenUseAccess)
}

// ValidateRefreshToken ensures the token is a well-formed refresh
// token and returns its subject, jti and expiry.
func (i *TokenIssuer) ValidateRefreshToken(tokenString string) (ValidatedToken, error) {
	return i.validate(tokenString, tokenUseRefresh)
}

func (i *TokenIssuer) issue(subject, use string, ttl time.Duration) (string, error) {
	if len(i.config.SigningSecret) == 0 {
		return "", errMissingSigningSecret
	}
	if subject == "" {
		return "", errMissingSubjectClaim
	}

	jti, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	now := i.clock().UTC()
	claims := TokenClaims{
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.config.Issuer,
			Audience:  []string{i.config.Audience},
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.config.SigningSecret)
}

func (i *TokenIssuer) validate(tokenString, expectedUse string) (ValidatedToken, error) {
	if len(i.config.SigningSecret) == 0 {
		return ValidatedToken{}, errMissingSigningSecret
	}

	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing algorithm: %s", token.Method.Alg())
			}
			return i.config.SigningSecret, nil
		},
		jwt.WithAudience(i.config.Audience),
		jwt.WithIssuer(i.config.Issuer),
		jwt.WithTimeFunc(i.clock),
	)
	if err != nil {
		return ValidatedToken{}, err
	}
	if claims.Subject == "" {
		return ValidatedToken{}, errMissingSubjectClaim
	}
	if claims.TokenUse != expectedUse {
		return ValidatedToken{}, ErrWrongTokenUse
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return ValidatedToken{Subject: claims.Subject, ID: claims.ID, ExpiresAt: expiresAt}, nil
}
