package room

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sharetube/together/internal/domain"
)

var errTokensDisabled = errors.New("identity tokens are disabled")

type IdentityClaims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

func (s service) parseIdentityToken(tokenString string) (*domain.User, error) {
	if s.secret == nil {
		return nil, errTokensDisabled
	}

	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return &domain.User{
		ID:    strings.TrimSpace(claims.Subject),
		Name:  claims.Name,
		Image: claims.Picture,
	}, nil
}
