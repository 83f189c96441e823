// Package setup describes a saved table: who plays, which script and how the
// game is narrated. Records are kept as assets and may be imported from YAML.
package setup

import (
	"fmt"
	"os"
	"strings"

	"github.com/pixil98/go-clocktower/internal/script"
	"github.com/pixil98/go-clocktower/internal/storage"
	"github.com/pixil98/go-errors"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

var fold = cases.Fold()

// Narrator backends.
const (
	NarratorTemplate = "template"
	NarratorNats     = "nats"
)

// Record is a reusable table configuration.
type Record struct {
	Name    string   `json:"name" yaml:"name"`
	Players []string `json:"players" yaml:"players"`
	Script  string   `json:"script" yaml:"script"`
	// Seed fixes every random decision when non-zero.
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	Narrator string `json:"narrator,omitempty" yaml:"narrator,omitempty"`
	Voice    string `json:"voice,omitempty" yaml:"voice,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`

	// Extensions holds settings for adapters outside the game core.
	Extensions storage.ExtensionState `json:"ext,omitempty" yaml:"-"`
}

func (r *Record) Validate() error {
	el := errors.NewErrorList()

	if strings.TrimSpace(r.Name) == "" {
		el.Add(fmt.Errorf("name must be set"))
	}
	if r.Script == "" {
		el.Add(fmt.Errorf("script must be set"))
	}
	el.Add(ValidatePlayers(r.Players))

	switch r.Narrator {
	case "", NarratorTemplate, NarratorNats:
	default:
		el.Add(fmt.Errorf("narrator %q is not one of %s, %s", r.Narrator, NarratorTemplate, NarratorNats))
	}

	return el.Err()
}

func (r *Record) Selector() string {
	return fmt.Sprintf("%s (%d players)", r.Name, len(r.Players))
}

// ValidatePlayers checks a roster's size and that every name is distinct.
func ValidatePlayers(players []string) error {
	el := errors.NewErrorList()

	if n := len(players); n < script.MinPlayers || n > script.MaxPlayers {
		el.Add(fmt.Errorf("need %d to %d players, have %d", script.MinPlayers, script.MaxPlayers, n))
	}

	seen := map[string]bool{}
	for _, p := range players {
		p = strings.TrimSpace(p)
		if p == "" {
			el.Add(fmt.Errorf("player names cannot be empty"))
			continue
		}
		if strings.Contains(p, ",") {
			el.Add(fmt.Errorf("player name %q cannot contain a comma", p))
		}
		key := fold.String(p)
		if seen[key] {
			el.Add(fmt.Errorf("player %q is listed twice", p))
		}
		seen[key] = true
	}

	return el.Err()
}

// Parse reads a YAML record and validates it.
func Parse(data []byte) (*Record, error) {
	var r Record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing setup: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("validating setup: %w", err)
	}
	return &r, nil
}

// LoadFile parses the YAML record at path.
func LoadFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading setup: %w", err)
	}
	return Parse(data)
}

// Marshal writes a record as YAML.
func Marshal(r *Record) ([]byte, error) {
	return yaml.Marshal(r)
}

// ID derives a store id from the record's name.
func (r *Record) ID() string {
	var sb strings.Builder
	dash := false
	for _, c := range strings.ToLower(strings.TrimSpace(r.Name)) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			sb.WriteRune(c)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
