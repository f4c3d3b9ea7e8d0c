package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind separates access tokens from refresh tokens so one cannot be
// presented in place of the other.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

type Claims struct {
	Username string    `json:"sub"`
	Kind     TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

func DefaultTokenConfig(secret string) TokenConfig {
	return TokenConfig{
		Secret:        secret,
		AccessExpiry:  30 * time.Minute,
		RefreshExpiry: 7 * 24 * time.Hour,
		Issuer:        "chatline",
	}
}

// Reason says why a token was rejected.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonMissing   Reason = "missing"
	ReasonMalformed Reason = "malformed"
	ReasonExpired   Reason = "expired"
	ReasonSignature Reason = "signature"
	ReasonWrongKind Reason = "wrong-kind"
)

// Verification is the outcome of checking a token. Claims is set only
// when Reason is ReasonNone.
type Verification struct {
	Claims *Claims
	Reason Reason
}

func (v Verification) Valid() bool {
	return v.Reason == ReasonNone && v.Claims != nil
}

func CreateAccessToken(username string, cfg TokenConfig) (string, error) {
	return createToken(username, AccessToken, cfg.AccessExpiry, cfg)
}

func CreateRefreshToken(username string, cfg TokenConfig) (string, error) {
	return createToken(username, RefreshToken, cfg.RefreshExpiry, cfg)
}

func createToken(username string, kind TokenKind, expiry time.Duration, cfg TokenConfig) (string, error) {
	if cfg.Secret == "" {
		return "", errors.New("missing secret")
	}
	if username == "" {
		return "", errors.New("missing username")
	}
	if expiry <= 0 {
		return "", errors.New("invalid expiry")
	}

	jtiBytes := make([]byte, 16)
	if _, err := rand.Read(jtiBytes); err != nil {
		return "", err
	}
	jti := hex.EncodeToString(jtiBytes)

	now := time.Now()
	claims := Claims{
		Username: username,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// Verify checks signature, expiry and kind of tokenString.
func Verify(tokenString string, kind TokenKind, cfg TokenConfig) Verification {
	if tokenString == "" {
		return Verification{Reason: ReasonMissing}
	}
	if cfg.Secret == "" {
		return Verification{Reason: ReasonSignature}
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Verification{Reason: ReasonExpired}
		case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
			return Verification{Reason: ReasonMalformed}
		default:
			return Verification{Reason: ReasonSignature}
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Username == "" {
		return Verification{Reason: ReasonMalformed}
	}
	if claims.Kind != kind {
		return Verification{Reason: ReasonWrongKind}
	}
	return Verification{Claims: claims}
}
