package collab

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pongd/pongd/internal/game"
)

const maxUsername = 32

// Identity turns a username into a player reference. The player id is a
// fresh uuid per request; the username doubles as the persistence key.
type Identity struct{}

func (Identity) Resolve(_ context.Context, username string) (game.PlayerRef, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return game.PlayerRef{}, fmt.Errorf("username is required")
	}
	if len(name) > maxUsername {
		return game.PlayerRef{}, fmt.Errorf("username longer than %d bytes", maxUsername)
	}
	return game.PlayerRef{ID: uuid.NewString(), DBID: name}, nil
}
