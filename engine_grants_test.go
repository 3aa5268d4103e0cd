package bitguard

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/MrEthical07/bitguard/permission"
)

func TestGrantAdministration(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	p := env.createPrincipal(t, "alice", "correct-password-123", true)

	got, err := env.engine.AddPermission(ctx, p.ID, "articles", permission.Read)
	if err != nil || got != permission.Read {
		t.Fatalf("add read: got %s, %v", got, err)
	}
	got, err = env.engine.AddPermission(ctx, p.ID, "articles", permission.Delete)
	if err != nil || got != permission.Read|permission.Delete {
		t.Fatalf("add delete: got %s, %v", got, err)
	}
	got, err = env.engine.RemovePermission(ctx, p.ID, "articles", permission.Read)
	if err != nil || got != permission.Delete {
		t.Fatalf("remove read: got %s, %v", got, err)
	}
	got, err = env.engine.RemovePermission(ctx, p.ID, "articles", permission.Delete)
	if err != nil || got != permission.None {
		t.Fatalf("remove delete: got %s, %v", got, err)
	}

	bits, found, err := env.store.FindGrant(ctx, p.ID, "articles")
	if err != nil || !found || bits != permission.None {
		t.Fatalf("expected a zero row to remain, got %s found=%v err=%v", bits, found, err)
	}

	if err := env.engine.SetGrant(ctx, p.ID, "reports", permission.ReadWrite); err != nil {
		t.Fatalf("set grant: %v", err)
	}
	set, err := env.engine.Grants(ctx, p.ID)
	if err != nil {
		t.Fatalf("grants: %v", err)
	}
	if len(set) != 2 || set["reports"] != permission.ReadWrite {
		t.Fatalf("unexpected grant set %v", set)
	}

	deleted, err := env.engine.DeleteGrant(ctx, p.ID, "reports")
	if err != nil || !deleted {
		t.Fatalf("expected delete to report true, got %v, %v", deleted, err)
	}
	deleted, err = env.engine.DeleteGrant(ctx, p.ID, "reports")
	if err != nil || deleted {
		t.Fatalf("expected second delete to report false, got %v, %v", deleted, err)
	}
}

func TestConcurrentPermissionEditsKeepEveryBit(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	p := env.createPrincipal(t, "alice", "correct-password-123", true)
	bits := []permission.Bits{permission.Read, permission.Create, permission.Update, permission.Delete}

	for round := 0; round < 50; round++ {
		module := "articles-" + strconv.Itoa(round)
		var wg sync.WaitGroup
		for _, bit := range bits {
			wg.Add(1)
			go func(bit permission.Bits) {
				defer wg.Done()
				if _, err := env.engine.AddPermission(ctx, p.ID, module, bit); err != nil {
					t.Errorf("add %s: %v", bit, err)
				}
			}(bit)
		}
		wg.Wait()

		got, found, err := env.store.FindGrant(ctx, p.ID, module)
		if err != nil || !found || got != permission.FullAccess {
			t.Fatalf("round %d: expected Full Access, got %s found=%v err=%v", round, got, found, err)
		}

		// Removing two bits concurrently from a full row must clear both.
		for _, bit := range []permission.Bits{permission.Create, permission.Delete} {
			wg.Add(1)
			go func(bit permission.Bits) {
				defer wg.Done()
				if _, err := env.engine.RemovePermission(ctx, p.ID, module, bit); err != nil {
					t.Errorf("remove %s: %v", bit, err)
				}
			}(bit)
		}
		wg.Wait()

		got, _, _ = env.store.FindGrant(ctx, p.ID, module)
		if got != permission.Read|permission.Update {
			t.Fatalf("round %d: expected Read|Update after removals, got %s", round, got)
		}
	}
}

func TestAddPermissionUnknownPrincipal(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, err := env.engine.AddPermission(context.Background(), 404, "articles", permission.Read)
	if !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("expected ErrInvalidGrant for unknown principal, got %v", err)
	}
}

func TestSetGrantRejectsInvalidMask(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	p := env.createPrincipal(t, "alice", "correct-password-123", true)

	if err := env.engine.SetGrant(ctx, p.ID, "articles", permission.Bits(16)); !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("expected ErrInvalidGrant for mask 16, got %v", err)
	}
	if err := env.engine.SetGrant(ctx, p.ID, "", permission.Read); !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("expected ErrInvalidGrant for empty module, got %v", err)
	}
	if _, err := env.engine.AddPermission(ctx, p.ID, "articles", permission.Bits(32)); !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("expected ErrInvalidGrant for bit 32, got %v", err)
	}
}

func TestSetGrantUnknownPrincipal(t *testing.T) {
	env := newTestEnv(t, testConfig())

	err := env.engine.SetGrant(context.Background(), 404, "articles", permission.Read)
	if !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("expected ErrInvalidGrant for unknown principal, got %v", err)
	}
}
