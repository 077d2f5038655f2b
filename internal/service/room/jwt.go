package room

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/connection"
)

type Claims struct {
	UserId  string
	IsAdmin bool
}

func (s service) verifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userId, _ := claims["user_id"].(string)
	if userId == "" {
		return nil, ErrInvalidToken
	}
	isAdmin, _ := claims["is_admin"].(bool)

	return &Claims{
		UserId:  userId,
		IsAdmin: isAdmin,
	}, nil
}

// GenerateToken mints an identity token. Production tokens come from
// the external identity issuer; this is for tests and the dev endpoint.
func (s service) GenerateToken(userId string, isAdmin bool) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  userId,
		"is_admin": isAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.secret))
}

// VerifyToken resolves a token to its claims without binding anything.
// Used by the REST surface, which has no connection to bind.
func (s service) VerifyToken(tokenString string) (*Claims, error) {
	return s.verifyToken(tokenString)
}

type AuthenticateParams struct {
	Conn  *websocket.Conn
	Token string
}

type AuthenticateResponse struct {
	UserId  string
	IsAdmin bool
}

// Authenticate verifies the token once per connection and binds the
// claimed identity into the registry for the connection's lifetime.
func (s service) Authenticate(ctx context.Context, params *AuthenticateParams) (AuthenticateResponse, error) {
	claims, err := s.verifyToken(params.Token)
	if err != nil {
		s.logger.InfoContext(ctx, "authentication failed", "error", err)
		return AuthenticateResponse{}, err
	}

	if err := s.connRepo.Add(params.Conn, connection.Binding{
		ConnId:  uuid.NewString(),
		UserId:  claims.UserId,
		IsAdmin: claims.IsAdmin,
	}); err != nil {
		return AuthenticateResponse{}, err
	}

	return AuthenticateResponse{
		UserId:  claims.UserId,
		IsAdmin: claims.IsAdmin,
	}, nil
}
