package identity

import (
	"context"

	"github.com/erazemk/depot/internal/model"
	"github.com/erazemk/depot/internal/store"
)

// MirrorUsers keeps the users directory in step with accounts: a new
// account gets a user document with the default role (merged into any
// existing one), and a deleted account loses its document.
func MirrorUsers(p *Provider) {
	p.OnCreate(func(ctx context.Context, acct *model.Account) error {
		_, err := store.PutUser(ctx, p.DB, acct.ID, acct.Email, acct.DisplayName, model.RoleUser)
		return err
	})
	p.OnDelete(func(ctx context.Context, acct *model.Account) error {
		return store.DeleteUser(ctx, p.DB, acct.ID)
	})
}
