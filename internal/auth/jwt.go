package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the decoded contents of a verified bearer token.
type Claims struct {
	Subject string
	Email   string
	Role    string
	TokenID string
}

// Issuer mints and verifies HS256 bearer tokens. The secret and TTL come from
// process configuration; no other component signs tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for the subject and returns it together with the token
// ID embedded as the jti claim. The jti doubles as the session ledger key.
func (i *Issuer) Issue(subject, email, role string) (token, tokenID string, err error) {
	jti, err := NewRawToken()
	if err != nil {
		return "", "", err
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"role":  role,
		"jti":   jti,
		"iat":   now.Unix(),
		"exp":   now.Add(i.ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// Verify checks signature and expiry. Expired, malformed and forged tokens are
// indistinguishable to callers; all come back as ErrInvalidToken.
func (i *Issuer) Verify(tokenStr string) (Claims, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mapc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := mapc["sub"].(string)
	email, _ := mapc["email"].(string)
	role, _ := mapc["role"].(string)
	jti, _ := mapc["jti"].(string)
	if sub == "" || jti == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{Subject: sub, Email: email, Role: role, TokenID: jti}, nil
}
