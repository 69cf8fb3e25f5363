package identity

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 24 * time.Hour

// JWTResolver issues and resolves HS256 bearer tokens whose subject is the
// user id.
type JWTResolver struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewJWTResolver constructs a JWTResolver with the given signing secret.
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{
		secret:   []byte(secret),
		tokenTTL: defaultTokenTTL,
	}
}

// Issue signs a token for the given user id.
func (j *JWTResolver) Issue(userID int) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// Resolve extracts and verifies the bearer token, returning the user id.
func (j *JWTResolver) Resolve(r *http.Request) (int, error) {
	tokenString, err := bearerToken(r)
	if err != nil {
		return 0, ErrUnauthenticated
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return j.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrUnauthenticated
	}

	userID, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || userID < 1 {
		return 0, ErrUnauthenticated
	}
	return userID, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
