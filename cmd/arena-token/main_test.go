package main

import (
	"context"
	"testing"
	"time"

	"github.com/pixil98/go-arena/internal/auth"
	"github.com/pixil98/go-arena/internal/game"
	"github.com/pixil98/go-arena/internal/storage"
	"github.com/pixil98/go-testutil"
)

func TestRun(t *testing.T) {
	t.Setenv("ARENA_TEST_SECRET", "s3cret")
	dir := t.TempDir()

	base := options{
		profiles:  dir,
		secretEnv: "ARENA_TEST_SECRET",
		user:      "alice",
		password:  "hunter22",
		ttl:       time.Hour,
	}

	reg := base
	reg.register = true
	reg.combatants = "ember, tide"
	reg.selectID = "tide"
	token, err := run(reg)
	if err != nil {
		t.Fatalf("registering: %v", err)
	}

	store, err := storage.NewFileStore[*game.Profile](dir)
	if err != nil {
		t.Fatalf("reopening profiles: %v", err)
	}
	profiles := game.NewProfiles(store)

	identity, err := auth.NewVerifier([]byte("s3cret"), profiles).Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verifying token: %v", err)
	}
	testutil.AssertEqual(t, "identity", identity, "alice")

	selected, err := profiles.SelectedCombatant("alice")
	if err != nil {
		t.Fatalf("selected combatant: %v", err)
	}
	testutil.AssertEqual(t, "selected", selected, "tide")

	tests := map[string]struct {
		mutate func(o *options)
		expErr string
	}{
		"login again": {
			mutate: func(o *options) {},
		},
		"wrong password": {
			mutate: func(o *options) { o.password = "nope" },
			expErr: "invalid credentials",
		},
		"register twice": {
			mutate: func(o *options) { o.register = true },
			expErr: "already exists",
		},
		"missing user": {
			mutate: func(o *options) { o.user = "" },
			expErr: "-user and -password are required",
		},
		"unset secret": {
			mutate: func(o *options) { o.secretEnv = "ARENA_TEST_UNSET" },
			expErr: "ARENA_TEST_UNSET is not set",
		},
		"select unowned": {
			mutate: func(o *options) { o.selectID = "gale" },
			expErr: "selecting gale",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			o := base
			tt.mutate(&o)

			_, err := run(o)
			if tt.expErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}

func TestSplitList(t *testing.T) {
	testutil.AssertEqual(t, "empty", len(splitList("")), 0)
	testutil.AssertEqual(t, "trimmed", splitList(" a, ,b "), []string{"a", "b"})
}
