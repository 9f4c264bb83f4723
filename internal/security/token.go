package security

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrBodyMismatch  = errors.New("token does not match message body")
	ErrWrongAudience = errors.New("wrong token audience for this endpoint")
)

const (
	issuer       = "business-visa-backend"
	mintAudience = "mint-queue"
)

// MessageClaims binds a signature to one queued message body.
type MessageClaims struct {
	// Body is the unpadded base64url SHA-256 of the message payload.
	Body string `json:"body"`
	jwt.RegisteredClaims
}

type MessageSigner interface {
	Sign(body []byte) (string, error)
	Verify(token string, body []byte) (*MessageClaims, error)
}

type messageSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewMessageSigner returns an HS256 signer. Signatures expire after ttl.
func NewMessageSigner(secret string, ttl time.Duration) MessageSigner {
	return &messageSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *messageSigner) Sign(body []byte) (string, error) {
	now := s.now()
	claims := MessageClaims{
		Body: bodyHash(body),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{mintAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *messageSigner) Verify(tokenString string, body []byte) (*MessageClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &MessageClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*MessageClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !hasAudience(claims.Audience, mintAudience) {
		return nil, ErrWrongAudience
	}
	if claims.Body != bodyHash(body) {
		return nil, ErrBodyMismatch
	}
	return claims, nil
}

func hasAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

func bodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
