package jwt

import (
	"errors"
	"fmt"
	"time"

	"kyokki-backend/domain"

	"github.com/golang-jwt/jwt/v4"
)

type (
	// JWTService issues and checks the bearer tokens used by kitchen displays
	// and mobile clients. Tokens identify a client device, not a person.
	JWTService interface {
		GenerateClientToken(clientID string, ttl time.Duration) (string, error)
		ValidateClientToken(token string) (string, error)
	}

	jwtClientClaim struct {
		ClientID string `json:"client_id"`
		jwt.RegisteredClaims
	}

	jwtService struct {
		secretKey string
		issuer    string
	}
)

func NewJWTService(secretKey string) JWTService {
	return &jwtService{
		secretKey: secretKey,
		issuer:    "KYOKKI",
	}
}

func (j *jwtService) GenerateClientToken(clientID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClientClaim{
		clientID,
		jwt.RegisteredClaims{
			Issuer:   j.issuer,
			Subject:  clientID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

func (j *jwtService) parseToken(t_ *jwt.Token) (any, error) {
	if _, ok := t_.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t_.Header["alg"])
	}
	return []byte(j.secretKey), nil
}

// ValidateClientToken returns the client id carried by a valid token.
func (j *jwtService) ValidateClientToken(token string) (string, error) {
	t_Token, err := jwt.ParseWithClaims(token, &jwtClientClaim{}, j.parseToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrTokenExpired
		}
		return "", domain.ErrTokenInvalid
	}
	if !t_Token.Valid {
		return "", domain.ErrTokenInvalid
	}

	claims := t_Token.Claims.(*jwtClientClaim)
	if claims.Issuer != j.issuer {
		return "", domain.ErrTokenInvalid
	}
	return claims.ClientID, nil
}
