package assignment

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/depot/internal/blob"
	"github.com/erazemk/depot/internal/db"
	"github.com/erazemk/depot/internal/model"
	"github.com/erazemk/depot/internal/store"
)

type fixture struct {
	svc   *Service
	now   time.Time
	admin model.Session
	ana   model.Session
	bor   model.Session
	cene  model.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return setupFixture(t, db.NewTestDB(t))
}

func setupFixture(t require.TestingT, database *sql.DB) *fixture {
	ctx := context.Background()
	f := &fixture{
		now:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		admin: model.Session{UserID: "admin", Role: model.RoleAdmin},
		ana:   model.Session{UserID: "ana", Role: model.RoleUser},
		bor:   model.Session{UserID: "bor", Role: model.RoleUser},
		cene:  model.Session{UserID: "cene", Role: model.RoleUser},
	}
	f.svc = New(database, &blob.Store{DB: database}, nil)
	f.svc.Now = func() time.Time { return f.now }

	for _, u := range []struct{ id, email, name, role string }{
		{"admin", "admin@depot.local", "", model.RoleAdmin},
		{"ana", "ana@example.com", "Ana", model.RoleUser},
		{"bor", "bor@example.com", "Bor", model.RoleUser},
		{"cene", "cene@example.com", "", model.RoleUser},
	} {
		_, err := store.PutUser(ctx, database, u.id, u.email, u.name, u.role)
		require.NoError(t, err)
	}
	return f
}

// newItem creates an item, handed to holder when holder is non-empty.
func (f *fixture) newItem(t require.TestingT, name, holder string) *model.Item {
	ctx := context.Background()
	item, err := store.CreateItem(ctx, f.svc.DB, name, "", "")
	require.NoError(t, err)
	if holder == "" {
		return item
	}

	_, err = f.svc.Propose(ctx, f.admin, item.ID, holder)
	require.NoError(t, err)
	item, err = f.svc.Accept(ctx, model.Session{UserID: holder, Role: model.RoleUser}, item.ID)
	require.NoError(t, err)
	return item
}

func (f *fixture) get(t require.TestingT, id string) *model.Item {
	item, err := store.GetItem(context.Background(), f.svc.DB, id)
	require.NoError(t, err)
	return item
}
