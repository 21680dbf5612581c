package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirror what the external identity provider signs into its tokens.
// The server never issues end-user tokens itself; GenerateToken exists for
// tests and local tooling.
type Claims struct {
	UserID       string `json:"uid"`
	EmployeeID   string `json:"eid"`
	Role         string `json:"role"`
	DepartmentID string `json:"dep"`
	SectionID    string `json:"sec"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// UserContextFromClaims drops tokens carrying a role outside the closed set.
func UserContextFromClaims(claims *Claims) (UserContext, bool) {
	role, ok := ParseRole(claims.Role)
	if !ok {
		return UserContext{}, false
	}
	return UserContext{
		UserID:       claims.UserID,
		EmployeeID:   claims.EmployeeID,
		Role:         role,
		DepartmentID: claims.DepartmentID,
		SectionID:    claims.SectionID,
	}, true
}
