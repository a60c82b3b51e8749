package storage

import (
	"fmt"
	"regexp"

	"github.com/pixil98/go-errors"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type ValidatingSpec interface {
	Validate() error
}

// Identifier is the key a record is stored under. For profiles it is the
// username, for combatants the catalog id.
type Identifier string

func (id Identifier) String() string {
	return string(id)
}

// Validate reports whether the identifier is safe to use as a record key
// and as a file name.
func (id Identifier) Validate() error {
	if id == "" {
		return fmt.Errorf("id must be set")
	}
	if !identifierPattern.MatchString(id.String()) {
		return fmt.Errorf("id %q must contain only letters, digits, '-' or '_'", id)
	}
	return nil
}

// Asset is the on-disk envelope around a stored record.
type Asset[T ValidatingSpec] struct {
	Version    uint       `json:"version"`
	Identifier Identifier `json:"id"`
	Spec       T          `json:"spec"`
}

func (a *Asset[T]) Id() Identifier {
	return a.Identifier
}

func (a *Asset[T]) Validate() error {
	el := errors.NewErrorList()

	if a.Version == 0 {
		el.Add(fmt.Errorf("version must be set"))
	}

	el.Add(a.Identifier.Validate())
	el.Add(a.Spec.Validate())

	return el.Err()
}
