package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testConfig() TokenConfig {
	return TokenConfig{Secret: "secret", AccessExpiry: time.Hour, RefreshExpiry: 24 * time.Hour, Issuer: "test"}
}

func TestCreateAndVerifyAccessToken(t *testing.T) {
	cfg := testConfig()
	tok, err := CreateAccessToken("testname", cfg)
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}

	v := Verify(tok, AccessToken, cfg)
	if !v.Valid() {
		t.Fatalf("expected valid, got reason %q", v.Reason)
	}
	if v.Claims.Username != "testname" {
		t.Fatalf("expected testname, got %q", v.Claims.Username)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	cfg := testConfig()
	tok, _ := CreateAccessToken("testname", cfg)

	other := cfg
	other.Secret = "wrong"
	if v := Verify(tok, AccessToken, other); v.Reason != ReasonSignature {
		t.Fatalf("expected signature reason, got %q", v.Reason)
	}
}

func TestVerify_WrongKind(t *testing.T) {
	cfg := testConfig()
	refresh, _ := CreateRefreshToken("testname", cfg)
	if v := Verify(refresh, AccessToken, cfg); v.Reason != ReasonWrongKind {
		t.Fatalf("expected wrong-kind, got %q", v.Reason)
	}
	access, _ := CreateAccessToken("testname", cfg)
	if v := Verify(access, RefreshToken, cfg); v.Reason != ReasonWrongKind {
		t.Fatalf("expected wrong-kind, got %q", v.Reason)
	}
}

func TestVerify_MissingAndMalformed(t *testing.T) {
	cfg := testConfig()
	if v := Verify("", AccessToken, cfg); v.Reason != ReasonMissing || v.Valid() {
		t.Fatalf("expected missing, got %q", v.Reason)
	}
	if v := Verify("not-a-jwt", AccessToken, cfg); v.Reason != ReasonMalformed {
		t.Fatalf("expected malformed, got %q", v.Reason)
	}
}

func TestVerify_Expired(t *testing.T) {
	cfg := testConfig()
	claims := Claims{
		Username: "testname",
		Kind:     AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if v := Verify(tok, AccessToken, cfg); v.Reason != ReasonExpired {
		t.Fatalf("expected expired, got %q", v.Reason)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	cfg := testConfig()
	claims := Claims{
		Username:         "testname",
		Kind:             AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if v := Verify(tok, AccessToken, cfg); v.Valid() {
		t.Fatalf("expected HS512 token to be rejected")
	}
}

func TestCreateToken_InvalidConfig(t *testing.T) {
	if _, err := CreateAccessToken("u", TokenConfig{AccessExpiry: time.Hour}); err == nil {
		t.Fatalf("expected missing secret error")
	}
	if _, err := CreateAccessToken("", testConfig()); err == nil {
		t.Fatalf("expected missing username error")
	}
	if _, err := CreateAccessToken("u", TokenConfig{Secret: "s", AccessExpiry: -time.Second}); err == nil {
		t.Fatalf("expected invalid expiry error")
	}
}
