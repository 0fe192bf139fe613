package operator

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCreds = errors.New("invalid credentials")
)

// Subject identifies the single operator in issued tokens.
const Subject = "operator"

type Service struct {
	passwordHash []byte
	jwtSecret    []byte
	jwtTTL       time.Duration
}

func NewService(passwordHash, jwtSecret []byte, jwtTTL time.Duration) *Service {
	return &Service{passwordHash: passwordHash, jwtSecret: jwtSecret, jwtTTL: jwtTTL}
}

// Authenticate checks the operator password against the configured bcrypt
// hash and issues a bearer token.
func (s *Service) Authenticate(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCreds
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   Subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", err
	}
	return signed, nil
}
