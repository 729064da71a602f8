// Package matchtoken issues and checks the per-match, per-player tokens
// that authorize control messages. A token is an HS256 JWT whose claims
// bind exactly one match id and one player id.
package matchtoken

import (
	"errors"
	"fmt"

	"github.com/form3tech-oss/jwt-go"
)

var ErrInvalid = errors.New("invalid match token")

const (
	claimMatch  = "mid"
	claimPlayer = "sub"
)

type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Issue signs matchID:playerID. The result is deterministic for a given
// secret so reissuing yields the same token.
func (s *Signer) Issue(matchID, playerID string) (string, error) {
	if matchID == "" || playerID == "" {
		return "", fmt.Errorf("match and player ids are required")
	}
	claims := jwt.MapClaims{
		claimMatch:  matchID,
		claimPlayer: playerID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify returns ErrInvalid unless token was issued by s for exactly this
// match and player.
func (s *Signer) Verify(token, matchID, playerID string) error {
	if token == "" {
		return ErrInvalid
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return ErrInvalid
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ErrInvalid
	}
	if mid, _ := claims[claimMatch].(string); mid != matchID {
		return ErrInvalid
	}
	if pid, _ := claims[claimPlayer].(string); pid != playerID {
		return ErrInvalid
	}
	return nil
}

// Valid is Verify as a boolean, for callers that drop bad tokens silently.
func (s *Signer) Valid(token, matchID, playerID string) bool {
	return s.Verify(token, matchID, playerID) == nil
}
