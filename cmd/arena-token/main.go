// Command arena-token manages local player profiles and issues the session
// tokens clients present when they connect.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pixil98/go-arena/internal/auth"
	"github.com/pixil98/go-arena/internal/game"
	"github.com/pixil98/go-arena/internal/storage"
)

type options struct {
	profiles   string
	secretEnv  string
	user       string
	password   string
	register   bool
	combatants string
	selectID   string
	ttl        time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.profiles, "profiles", "data/profiles", "profile directory")
	flag.StringVar(&opts.secretEnv, "secret-env", "ARENA_SECRET", "environment variable holding the signing secret")
	flag.StringVar(&opts.user, "user", "", "username")
	flag.StringVar(&opts.password, "password", "", "password")
	flag.BoolVar(&opts.register, "register", false, "create the profile before issuing a token")
	flag.StringVar(&opts.combatants, "combatants", "", "comma separated combatant ids owned by a new profile")
	flag.StringVar(&opts.selectID, "select", "", "combatant id to select for battles")
	flag.DurationVar(&opts.ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	flag.Parse()

	token, err := run(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arena-token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func run(opts options) (string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("loading .env: %w", err)
	}

	if opts.user == "" || opts.password == "" {
		return "", fmt.Errorf("-user and -password are required")
	}
	secret := os.Getenv(opts.secretEnv)
	if secret == "" {
		return "", fmt.Errorf("environment variable %s is not set", opts.secretEnv)
	}

	store, err := storage.NewFileStore[*game.Profile](opts.profiles)
	if err != nil {
		return "", fmt.Errorf("opening profiles: %w", err)
	}
	profiles := game.NewProfiles(store)

	if opts.register {
		hash, err := auth.HashPassword(opts.password)
		if err != nil {
			return "", err
		}
		if err := profiles.Create(opts.user, hash, splitList(opts.combatants)); err != nil {
			return "", fmt.Errorf("registering %s: %w", opts.user, err)
		}
	}

	issuer := auth.NewIssuer([]byte(secret), profiles, auth.WithTokenTTL(opts.ttl))
	token, err := issuer.Login(opts.user, opts.password)
	if err != nil {
		return "", err
	}

	if opts.selectID != "" {
		if err := profiles.SelectCombatant(opts.user, opts.selectID); err != nil {
			return "", fmt.Errorf("selecting %s: %w", opts.selectID, err)
		}
	}

	return token, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
