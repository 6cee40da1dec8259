package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

const (
	HostTicketIssuer = "cardtable"
	HostTicketTTL    = 10 * time.Minute
)

var ErrInvalidTicket = errors.New("invalid host ticket")

// TicketService issues and checks host tickets: signed claims that a user may
// host a specific match.
type TicketService struct {
	secret string
	issuer string
	now    func() time.Time
}

func NewTicketService(secret string) *TicketService {
	return &TicketService{secret: secret, issuer: HostTicketIssuer, now: time.Now}
}

// Issue signs a ticket naming user as host of matchID.
func (s *TicketService) Issue(user, matchID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("ticket service is nil")
	}
	if user == "" || matchID == "" {
		return "", fmt.Errorf("user and match are required")
	}
	if s.secret == "" {
		return "", fmt.Errorf("ticket secret is not configured")
	}

	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": user,
		"mid": matchID,
		"exp": s.now().Add(HostTicketTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify checks that ticket was issued by this service for user and matchID
// and has not expired.
func (s *TicketService) Verify(ticket, user, matchID string) error {
	if s == nil || s.secret == "" {
		return fmt.Errorf("%w: no secret configured", ErrInvalidTicket)
	}
	token, err := jwt.Parse(ticket, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return ErrInvalidTicket
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return fmt.Errorf("%w: wrong issuer", ErrInvalidTicket)
	}
	if !claims.VerifyExpiresAt(s.now().Unix(), true) {
		return fmt.Errorf("%w: expired", ErrInvalidTicket)
	}
	if sub, _ := claims["sub"].(string); sub != user {
		return fmt.Errorf("%w: issued to another user", ErrInvalidTicket)
	}
	if mid, _ := claims["mid"].(string); mid != matchID {
		return fmt.Errorf("%w: issued for another match", ErrInvalidTicket)
	}
	return nil
}
