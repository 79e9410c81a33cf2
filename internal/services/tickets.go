package services

import (
	"fmt"
	"os"
	"time"

	"threadloom/internal/errs"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TicketService issues short-lived signed tickets that let the browser
// open a websocket without replaying the session cookie on the upgrade.
type TicketService struct {
	secret []byte
	ttl    time.Duration
}

type ticketClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

func NewTicketService() *TicketService {
	secret := os.Getenv("PUSH_TICKET_SECRET")
	if secret == "" {
		secret = "ticket_secret_change_me"
	}
	return &TicketService{secret: []byte(secret), ttl: 60 * time.Second}
}

func (s *TicketService) Issue(userID uint) (string, error) {
	claims := ticketClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "threadloom",
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TicketService) Verify(tokenString string) (uint, error) {
	if tokenString == "" {
		return 0, errs.Authorization("missing ticket")
	}
	token, err := jwt.ParseWithClaims(tokenString, &ticketClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, errs.Authorization("invalid or expired ticket")
	}
	claims, ok := token.Claims.(*ticketClaims)
	if !ok || claims.UserID == 0 {
		return 0, errs.Authorization("invalid ticket claims")
	}
	return claims.UserID, nil
}
