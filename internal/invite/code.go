package invite

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"nestkeep/internal/store"
)

// maxCodeAttempts bounds the collision retry loop. The code space is 900k
// values, so hitting this means something other than bad luck.
const maxCodeAttempts = 32

// CodeGenerator produces short, globally unique, time-limited invite codes.
type CodeGenerator struct {
	invites *store.InviteStore
	draw    func() (string, error)
}

func NewCodeGenerator(invites *store.InviteStore) *CodeGenerator {
	return &CodeGenerator{invites: invites, draw: drawCode}
}

// drawCode returns a uniformly random 6-digit code (100000-999999).
func drawCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("draw code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Generate draws codes until one does not collide with an existing invite
// document. The existence check is check-then-act, acceptable because the
// code space dwarfs concurrent issuance volume in this domain.
func (g *CodeGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := g.draw()
		if err != nil {
			return "", err
		}
		exists, err := g.invites.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("generate invite code: %d collisions in a row", maxCodeAttempts)
}
