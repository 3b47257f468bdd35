package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/teamboard/teamboard/database"
)

// Identity is what the external auth provider vouches for: a stable uid plus
// display profile. Federated marks identities that arrived through a
// third-party SSO provider rather than direct credentials; the access gate
// treats the two differently.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	Federated   bool   `json:"federated"`
}

// AuthService turns identity assertions into signed session tokens and back.
// The upstream provider is opaque to us; the JWT only carries what the
// dashboard needs.
type AuthService struct {
	jwtSecret []byte
	ttl       time.Duration
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{
		jwtSecret: []byte(secret),
		ttl:       time.Hour * 24 * 7,
	}
}

// CreateJWT generates a session token for an identity.
func (s *AuthService) CreateJWT(id Identity) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":         id.UID,
		"displayName": id.DisplayName,
		"photoURL":    id.PhotoURL,
		"federated":   id.Federated,
		"exp":         time.Now().Add(s.ttl).Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// VerifyJWT verifies a session token and returns the identity it carries.
func (s *AuthService) VerifyJWT(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return Identity{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid token claims")
	}
	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return Identity{}, errors.New("uid claim missing")
	}

	id := Identity{UID: uid}
	id.DisplayName, _ = claims["displayName"].(string)
	id.PhotoURL, _ = claims["photoURL"].(string)
	id.Federated, _ = claims["federated"].(bool)
	return id, nil
}

// Actor converts the identity into an attribution record stamped at ts.
func (id Identity) Actor(ts time.Time) database.Actor {
	return database.Actor{
		UID:         id.UID,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		Timestamp:   ts,
	}
}
