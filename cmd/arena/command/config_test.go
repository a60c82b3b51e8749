package command

import (
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func validConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		TickInterval: "1s",
		Listener:     ListenerConfig{Port: 3000},
		Auth:         AuthConfig{Secret: "s3cret"},
		Storage: StorageConfig{
			Profiles:   ProfileStoreConfig{Path: t.TempDir()},
			Combatants: AssetConfig{Path: t.TempDir()},
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		mutate func(c *Config)
		expErr string
	}{
		"defaults are valid": {
			mutate: func(c *Config) {},
		},
		"bad tick interval": {
			mutate: func(c *Config) { c.TickInterval = "soon" },
			expErr: "parsing tick_interval",
		},
		"negative duration": {
			mutate: func(c *Config) { c.Challenge.OfferTTL = "-1s" },
			expErr: "offer_ttl must be positive",
		},
		"missing port": {
			mutate: func(c *Config) { c.Listener.Port = 0 },
			expErr: "port must be set",
		},
		"dead peer shorter than keepalive": {
			mutate: func(c *Config) {
				c.Listener.KeepaliveInterval = "30s"
				c.Listener.DeadPeerTimeout = "10s"
			},
			expErr: "dead_peer_timeout must be longer",
		},
		"no secret": {
			mutate: func(c *Config) { c.Auth.Secret = "" },
			expErr: "secret or secret_env is required",
		},
		"both secrets": {
			mutate: func(c *Config) { c.Auth.SecretEnv = "ARENA_SECRET" },
			expErr: "only one of secret or secret_env",
		},
		"unset secret env": {
			mutate: func(c *Config) {
				c.Auth.Secret = ""
				c.Auth.SecretEnv = "ARENA_TEST_UNSET_SECRET"
			},
			expErr: "ARENA_TEST_UNSET_SECRET is not set",
		},
		"missing profile path": {
			mutate: func(c *Config) { c.Storage.Profiles.Path = "/does/not/exist" },
			expErr: "profiles: invalid path",
		},
		"postgres without dsn": {
			mutate: func(c *Config) { c.Storage.Profiles.Driver = ProfileDriverPostgres },
			expErr: "dsn is required",
		},
		"unknown driver": {
			mutate: func(c *Config) { c.Storage.Profiles.Driver = "redis" },
			expErr: `unknown driver "redis"`,
		},
		"missing combatants": {
			mutate: func(c *Config) { c.Storage.Combatants.Path = "" },
			expErr: "combatants: path is required",
		},
		"bad battle template": {
			mutate: func(c *Config) { c.Combat.Messages.Win = "{{ .Winner " },
			expErr: "parsing win template",
		},
		"negative max turns": {
			mutate: func(c *Config) { c.Combat.MaxTurns = -1 },
			expErr: "max_turns cannot be negative",
		},
		"bad log level": {
			mutate: func(c *Config) { c.Log.Level = "chatty" },
			expErr: "log:",
		},
		"nats port out of range": {
			mutate: func(c *Config) { c.Nats.Port = 70000 },
			expErr: "out of range",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := validConfig(t)
			tt.mutate(&c)

			err := c.Validate()
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

func TestConfig_SecretEnv(t *testing.T) {
	t.Setenv("ARENA_TEST_SECRET", "from-env")

	c := AuthConfig{SecretEnv: "ARENA_TEST_SECRET"}
	if err := c.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "secret", string(c.secret()), "from-env")
}

func TestConfig_Defaults(t *testing.T) {
	c := validConfig(t)

	testutil.AssertEqual(t, "tick", c.tickInterval(), time.Second)
	testutil.AssertEqual(t, "map", c.mapName(), "assets/map.png")
	testutil.AssertEqual(t, "auth timeout", c.Listener.authTimeout(), 5*time.Second)
	testutil.AssertEqual(t, "rate limit", c.Listener.updateInterval(), 100*time.Millisecond)
	testutil.AssertEqual(t, "offer ttl", c.Challenge.offerTTL(), time.Minute)
	testutil.AssertEqual(t, "driver", c.Storage.Profiles.driver(), ProfileDriverFile)
}

func TestBuildWorkers(t *testing.T) {
	c := validConfig(t)
	c.Log.Path = t.TempDir() + "/arena.log"

	workers, err := BuildWorkers(&c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"nats", "combat", "driver", "listener", "log"} {
		if _, ok := workers[name]; !ok {
			t.Errorf("missing worker %q", name)
		}
	}

	_, err = BuildWorkers("not a config")
	testutil.AssertErrorContains(t, err, "unable to cast config")
}
