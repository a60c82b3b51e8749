package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-arena/internal/game"
	"github.com/pixil98/go-arena/internal/storage"
	"github.com/pixil98/go-errors"
)

const (
	ProfileDriverFile     = "file"
	ProfileDriverPostgres = "postgres"

	profileKind = "profile"
)

type StorageConfig struct {
	Profiles   ProfileStoreConfig `json:"profiles"`
	Combatants AssetConfig        `json:"combatants"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()
	el.Add(c.Profiles.validate())
	el.Add(c.Combatants.validate("combatants"))
	return el.Err()
}

// ProfileStoreConfig selects where player profiles live.
type ProfileStoreConfig struct {
	Driver string `json:"driver"`
	Path   string `json:"path,omitempty"`
	DSN    string `json:"dsn,omitempty"`
}

func (c *ProfileStoreConfig) driver() string {
	if c.Driver == "" {
		return ProfileDriverFile
	}
	return c.Driver
}

func (c *ProfileStoreConfig) validate() error {
	switch c.driver() {
	case ProfileDriverFile:
		a := AssetConfig{Path: c.Path}
		return a.validate("profiles")
	case ProfileDriverPostgres:
		if c.DSN == "" {
			return fmt.Errorf("profiles: dsn is required for the postgres driver")
		}
		return nil
	default:
		return fmt.Errorf("profiles: unknown driver %q", c.Driver)
	}
}

func (c *ProfileStoreConfig) buildProfiles() (*game.Profiles, error) {
	var store storage.Storer[*game.Profile]

	switch c.driver() {
	case ProfileDriverFile:
		fs, err := storage.NewFileStore[*game.Profile](c.Path)
		if err != nil {
			return nil, err
		}
		store = fs
	case ProfileDriverPostgres:
		db, err := storage.OpenPostgres(c.DSN)
		if err != nil {
			return nil, err
		}
		sqlStore, err := storage.NewSQLStore[*game.Profile](db, profileKind)
		if err != nil {
			return nil, err
		}
		store = sqlStore
	default:
		return nil, fmt.Errorf("unknown profile driver %q", c.Driver)
	}

	return game.NewProfiles(store), nil
}

type AssetConfig struct {
	Path string `json:"path"`
}

func (c *AssetConfig) validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}

	return nil
}

func (c *AssetConfig) buildCatalog() (*game.Catalog, error) {
	store, err := storage.NewFileStore[*game.Combatant](c.Path)
	if err != nil {
		return nil, err
	}
	return game.NewCatalog(store), nil
}
