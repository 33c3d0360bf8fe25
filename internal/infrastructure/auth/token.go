package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNoToken      = errors.New("no token provided")
	ErrInvalidToken = errors.New("invalid token")
)

type Claims struct {
	jwt.RegisteredClaims
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Identity is the authenticated (or guest) participant identity attached to
// a connection.
type Identity struct {
	UserID    string
	Name      string
	AvatarURL string
	Guest     bool
}

type Verifier struct {
	secret      []byte
	allowGuests bool
}

func NewVerifier(secret string, allowGuests bool) *Verifier {
	return &Verifier{secret: []byte(secret), allowGuests: allowGuests}
}

// Verify validates an HS256 bearer token and returns the identity it
// carries. When no token is present and guests are allowed, a throwaway
// guest identity is minted using the supplied display name.
func (v *Verifier) Verify(tokenString, displayName string) (*Identity, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	if tokenString == "" {
		if !v.allowGuests {
			return nil, ErrNoToken
		}
		if displayName == "" {
			displayName = "guest"
		}
		return &Identity{
			UserID: "guest-" + uuid.NewString(),
			Name:   displayName,
			Guest:  true,
		}, nil
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	name := claims.Name
	if displayName != "" {
		name = displayName
	}

	return &Identity{
		UserID:    claims.Subject,
		Name:      name,
		AvatarURL: claims.AvatarURL,
	}, nil
}

// ExtractToken pulls the bearer token from the query string or the
// Authorization header. Websocket dials from browsers cannot set headers,
// so the query param is checked first.
func ExtractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
