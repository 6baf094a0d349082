// Package auth issues and checks the node tokens that mark a gRPC record
// request as coming from another directory node.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
)

// Claims carries the standard claims plus the id of the calling node.
type Claims struct {
	jwt.RegisteredClaims
	NodeID string
}

func GenerateNodeToken(nodeID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
			Subject:   nodeID,
		},
		NodeID: nodeID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// NodeIDFromToken validates tokenString and returns the node id in it.
// Expired tokens yield common.ErrTokenExpired, everything else that fails
// validation yields common.ErrInvalidToken.
func NodeIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.NodeID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.NodeID, nil
}
