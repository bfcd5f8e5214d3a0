package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpired       = errors.New("token expired")
	ErrInvalid       = errors.New("token invalid")
	ErrMisconfigured = errors.New("signing secret missing or insecure default")
)

// insecureDefaultSecret is the placeholder shipped in example env files.
// Accepting it would let anyone forge tokens, so it is treated the same
// as no secret at all.
const insecureDefaultSecret = "default_jwt_secret"

const DefaultTTL = 5 * time.Minute

type Claims struct {
	jwt.RegisteredClaims
	Room string `json:"room,omitempty"`
}

func (c *Claims) Identity() string {
	return c.Subject
}

// Issuer mints and verifies HMAC-SHA256 signed session tokens bound to an
// identity and an optional room.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" || secret == insecureDefaultSecret {
		return nil, ErrMisconfigured
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

func (i *Issuer) Issue(identity, room string) (string, error) {
	if len(i.secret) == 0 || string(i.secret) == insecureDefaultSecret {
		return "", ErrMisconfigured
	}

	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Room: room,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

func (i *Issuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return i.now() }))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	if !tok.Valid || claims.Subject == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}
