package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/bloomforlungs/bloom/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	purposeSession = "session"
	purposeState   = "oauth_state"
	stateTTL       = 10 * time.Minute
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Issuer signs session tokens and OAuth state values with one HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}

	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

func (i *Issuer) GenerateJWT(identity types.Identity) (string, error) {
	claims := jwt.MapClaims{
		"purpose": purposeSession,
		"email":   identity.Email,
		"name":    identity.Name,
		"exp":     i.now().Add(i.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *Issuer) VerifyJWT(tokenString string) (types.Identity, error) {
	claims, err := i.parse(tokenString, purposeSession)
	if err != nil {
		return types.Identity{}, err
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return types.Identity{}, ErrInvalidToken
	}
	name, _ := claims["name"].(string)

	return types.Identity{Email: email, Name: name}, nil
}

// SignState wraps the referral code in a short-lived OAuth state value so it
// survives the round trip through the identity provider.
func (i *Issuer) SignState(ref string) (string, error) {
	claims := jwt.MapClaims{
		"purpose": purposeState,
		"ref":     ref,
		"nonce":   uuid.NewString(),
		"exp":     i.now().Add(stateTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// VerifyState returns the referral code carried by state.
func (i *Issuer) VerifyState(state string) (string, error) {
	claims, err := i.parse(state, purposeState)
	if err != nil {
		return "", err
	}

	ref, _ := claims["ref"].(string)
	return ref, nil
}

func (i *Issuer) parse(tokenString, purpose string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["purpose"] != purpose {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
