package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"crusade/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	Provider string `json:"provider"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type Authentication struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthentication(secret string) (*Authentication, error) {
	if secret == "" {
		return nil, errors.New("empty jwt secret")
	}
	return &Authentication{[]byte(secret), TOKEN_TTL}, nil
}

func (authentication *Authentication) CreateToken(user *models.UserFromAuth, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(authentication.ttl)
	claims := CustomClaims{
		Provider: user.Provider,
		Email:    user.Email,
		Name:     user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(authentication.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate implements the verifier used by the Authn middleware.
func (authentication *Authentication) Validate(token string) (*models.UserFromAuth, error) {
	keyFunc := func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return authentication.secret, nil
	}

	jwtToken, err := jwt.ParseWithClaims(token, &CustomClaims{}, keyFunc, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := jwtToken.Claims.(*CustomClaims)
	if !ok || !jwtToken.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" || !strings.HasPrefix(claims.Subject, claims.Provider+":") {
		return nil, errors.New("invalid token subject")
	}

	return &models.UserFromAuth{
		ID:       claims.Subject,
		Provider: claims.Provider,
		Email:    claims.Email,
		Name:     claims.Name,
	}, nil
}
