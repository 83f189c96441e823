package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-clocktower/internal/abilities"
	"github.com/pixil98/go-clocktower/internal/journal"
	"github.com/pixil98/go-clocktower/internal/script"
	"github.com/pixil98/go-clocktower/internal/setup"
	"github.com/pixil98/go-clocktower/internal/storage"
	"github.com/pixil98/go-errors"
)

type StorageConfig struct {
	Roles   AssetConfig[*script.Role]   `json:"roles"`
	Scripts AssetConfig[*script.Script] `json:"scripts"`
	Setups  AssetConfig[*setup.Record]  `json:"setups"`
	// Journal is the SQLite file holding snapshots and events. Empty
	// disables it.
	Journal string `json:"journal" env:"CLOCKTOWER_JOURNAL"`
}

// BuildCatalog loads the roles and scripts and binds them to the ability
// handlers.
func (c *StorageConfig) BuildCatalog() (*script.Catalog, error) {
	roles, err := c.Roles.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating role store: %w", err)
	}
	scripts, err := c.Scripts.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating script store: %w", err)
	}

	catalog, err := script.NewCatalog(roles, scripts, abilities.NewTroubleBrewingRegistry())
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}
	return catalog, nil
}

// BuildSetups loads saved tables, or returns nil when none are configured.
func (c *StorageConfig) BuildSetups() (storage.Storer[*setup.Record], error) {
	if c.Setups.Path == "" {
		return nil, nil
	}
	s, err := c.Setups.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating setup store: %w", err)
	}
	return s, nil
}

// BuildJournal opens the journal, or returns nil when it is disabled.
func (c *StorageConfig) BuildJournal() (*journal.Journal, error) {
	if c.Journal == "" {
		return nil, nil
	}
	return journal.Open(c.Journal)
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()
	el.Add(c.Roles.Validate("roles"))
	el.Add(c.Scripts.Validate("scripts"))
	if c.Setups.Path != "" {
		el.Add(c.Setups.Validate("setups"))
	}
	return el.Err()
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}

	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}
