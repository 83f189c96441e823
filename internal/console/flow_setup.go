package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixil98/go-clocktower/internal"
	"github.com/pixil98/go-clocktower/internal/script"
	"github.com/pixil98/go-clocktower/internal/setup"
	"github.com/pixil98/go-clocktower/internal/storage"
)

// SetupFlow asks the host who is playing and which script to use, or loads
// a saved table.
type SetupFlow struct {
	Scripts *storage.SelectableStorer[*script.Script]
	Setups  storage.Storer[*setup.Record]
}

func (f *SetupFlow) Run(ctx context.Context, c *Conn) (*setup.Record, error) {
	if err := c.WriteLine("Welcome to Clocktower!"); err != nil {
		return nil, err
	}

	if f.Setups != nil {
		saved := storage.NewSelectableStorer(f.Setups)
		if saved.Len() > 0 {
			ok, err := internal.PromptYN(ctx, c, c, "Use a saved table (Y/N)? ")
			if err != nil {
				return nil, err
			}
			if ok {
				id, err := saved.Prompt(ctx, c, c, "Which table?")
				if err != nil {
					return nil, fmt.Errorf("selecting table: %w", err)
				}
				if r, ok := f.Setups.Get(id); ok {
					return r, nil
				}
			}
		}
	}

	var players []string
	_, err := internal.Prompt(ctx, c, c, "Who is playing? Enter names separated by commas: ",
		internal.WithValidator(func(s string) (bool, string) {
			players = splitList(s)
			if err := setup.ValidatePlayers(players); err != nil {
				return false, err.Error() + "\n"
			}
			return true, ""
		}))
	if err != nil {
		return nil, err
	}

	scriptID := f.Scripts.Select(1)
	if f.Scripts.Len() > 1 {
		scriptID, err = f.Scripts.Prompt(ctx, c, c, "Which script?")
		if err != nil {
			return nil, fmt.Errorf("selecting script: %w", err)
		}
	}
	if scriptID == "" {
		return nil, fmt.Errorf("no scripts are loaded")
	}

	rec := &setup.Record{Name: "Unsaved table", Players: players, Script: scriptID}
	if f.Setups == nil {
		return rec, nil
	}

	save, err := internal.PromptYN(ctx, c, c, "Save this table for next time (Y/N)? ")
	if err != nil {
		return nil, err
	}
	if !save {
		return rec, nil
	}

	name, err := internal.Prompt(ctx, c, c, "Name this table: ", internal.WithValidator(func(s string) (bool, string) {
		if (&setup.Record{Name: s}).ID() == "" {
			return false, "Use at least one letter or digit.\n"
		}
		return true, ""
	}))
	if err != nil {
		return nil, err
	}
	rec.Name = name

	if err := f.Setups.Save(rec.ID(), rec); err != nil {
		return nil, fmt.Errorf("saving table: %w", err)
	}
	return rec, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
