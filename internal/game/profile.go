package game

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/pixil98/go-arena/internal/storage"
)

// Profile is the persisted account record of one identity.
type Profile struct {
	PasswordHash      string     `json:"password_hash,omitempty"`
	Progress          *Transform `json:"progress,omitempty"`
	SelectedCombatant string     `json:"selected_combatant,omitempty"`
	Combatants        []string   `json:"combatants,omitempty"`
}

func (p *Profile) Validate() error {
	if p == nil {
		return fmt.Errorf("profile spec is required")
	}
	if p.SelectedCombatant != "" && len(p.Combatants) > 0 && !slices.Contains(p.Combatants, p.SelectedCombatant) {
		return fmt.Errorf("selected combatant %q is not in combatants", p.SelectedCombatant)
	}
	return nil
}

// Profiles is the profile store used by the session server. Every read goes
// to storage, since arena-token edits the same records from another process.
// Stored profiles are never mutated in place; updates save a modified copy.
type Profiles struct {
	store storage.Storer[*Profile]
	mu    sync.Mutex
}

func NewProfiles(store storage.Storer[*Profile]) *Profiles {
	return &Profiles{store: store}
}

func (p *Profiles) get(identity string) (*Profile, error) {
	prof, err := p.store.Get(identity)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, identity)
	}
	if err != nil {
		return nil, err
	}
	return prof, nil
}

// Exists reports whether identity has a profile.
func (p *Profiles) Exists(identity string) bool {
	_, err := p.get(identity)
	return err == nil
}

// PasswordHash returns the stored bcrypt hash for identity.
func (p *Profiles) PasswordHash(identity string) (string, error) {
	prof, err := p.get(identity)
	if err != nil {
		return "", err
	}
	return prof.PasswordHash, nil
}

// Create stores a new profile. It fails if identity already has one.
func (p *Profiles) Create(identity, passwordHash string, combatants []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.store.Get(identity); err == nil {
		return fmt.Errorf("profile %q already exists", identity)
	}

	return p.store.Save(identity, &Profile{
		PasswordHash: passwordHash,
		Combatants:   slices.Clone(combatants),
	})
}

// LoadProgress returns the last persisted transform or the default one.
func (p *Profiles) LoadProgress(identity string) (Transform, error) {
	prof, err := p.get(identity)
	if err != nil {
		return DefaultTransform(), err
	}
	if prof.Progress == nil {
		return DefaultTransform(), nil
	}
	return *prof.Progress, nil
}

// SaveProgress persists t as the identity's latest transform.
func (p *Profiles) SaveProgress(identity string, t Transform) error {
	return p.update(identity, func(prof *Profile) error {
		prof.Progress = &t
		return nil
	})
}

// SelectedCombatant returns the combatant id chosen for battle.
func (p *Profiles) SelectedCombatant(identity string) (string, error) {
	prof, err := p.get(identity)
	if err != nil {
		return "", err
	}
	if prof.SelectedCombatant == "" {
		return "", fmt.Errorf("%w: %s", ErrNoSelection, identity)
	}
	return prof.SelectedCombatant, nil
}

// SelectCombatant sets the combatant used in the identity's next battle.
// When the profile lists owned combatants, id must be one of them.
func (p *Profiles) SelectCombatant(identity, id string) error {
	return p.update(identity, func(prof *Profile) error {
		if len(prof.Combatants) > 0 && !slices.Contains(prof.Combatants, id) {
			return fmt.Errorf("%w: %s", ErrCombatantNotOwned, id)
		}
		prof.SelectedCombatant = id
		return nil
	})
}

func (p *Profiles) update(identity string, fn func(*Profile) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prof, err := p.get(identity)
	if err != nil {
		return err
	}

	updated := *prof
	updated.Combatants = slices.Clone(prof.Combatants)
	if err := fn(&updated); err != nil {
		return err
	}

	return p.store.Save(identity, &updated)
}

// Catalog resolves combatant ids to stat blocks.
type Catalog struct {
	store storage.Storer[*Combatant]
}

func NewCatalog(store storage.Storer[*Combatant]) *Catalog {
	return &Catalog{store: store}
}

// Lookup returns a copy of the combatant stored under id.
func (c *Catalog) Lookup(id string) (Combatant, error) {
	cb, err := c.store.Get(id)
	if err != nil {
		return Combatant{}, fmt.Errorf("%w: %s", ErrCombatantNotFound, id)
	}
	out := *cb
	out.ID = id
	return out, nil
}

// Len is the number of combatants in the catalog.
func (c *Catalog) Len() int {
	return len(c.store.GetAll())
}
