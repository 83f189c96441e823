package console

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/pixil98/go-clocktower/internal"
	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-clocktower/internal/storyteller"
	"github.com/pixil98/go-errors"
	"golang.org/x/text/cases"
)

var fold = cases.Fold()

// Table is the storyteller's view of the players.
type Table struct {
	host *Conn

	mu     sync.Mutex
	roster []string
	seats  map[string]*Conn
}

var _ storyteller.PlayerIO = (*Table)(nil)

// NewTable returns a table driven from host.
func NewTable(host *Conn, roster []string) *Table {
	return &Table{
		host:   host,
		roster: slices.Clone(roster),
		seats:  map[string]*Conn{},
	}
}

// Join seats a player at their own terminal.
func (t *Table) Join(name string, c *Conn) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	canonical, ok := t.lookup(name)
	if !ok {
		return "", fmt.Errorf("%q is not playing", name)
	}
	if _, taken := t.seats[fold.String(canonical)]; taken {
		return "", fmt.Errorf("%s is already seated", canonical)
	}
	t.seats[fold.String(canonical)] = c
	return canonical, nil
}

// Leave frees a player's seat. Their messages go back to the host.
func (t *Table) Leave(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seats, fold.String(name))
}

// Roster returns the player names in seating order.
func (t *Table) Roster() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.roster)
}

// lookup finds a roster name case-insensitively. mu must be held.
func (t *Table) lookup(name string) (string, bool) {
	key := fold.String(strings.TrimSpace(name))
	for _, r := range t.roster {
		if fold.String(r) == key {
			return r, true
		}
	}
	return "", false
}

func (t *Table) seat(player string) *Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seats[fold.String(player)]
}

func (t *Table) Speak(_ context.Context, text string) error {
	t.mu.Lock()
	conns := []*Conn{t.host}
	for _, c := range t.seats {
		conns = append(conns, c)
	}
	t.mu.Unlock()

	el := errors.NewErrorList()
	for _, c := range conns {
		el.Add(c.WriteLine(text))
	}
	return el.Err()
}

// SpeakToPlayer whispers to a seated player, or to the host on their behalf.
func (t *Table) SpeakToPlayer(_ context.Context, player, text string) error {
	if c := t.seat(player); c != nil {
		return c.WriteLine(text)
	}
	return t.host.WriteLine(fmt.Sprintf("[to %s] %s", player, text))
}

// ListenForCommand reads host lines until one is a known command or a
// nomination.
func (t *Table) ListenForCommand(ctx context.Context, verbs []string) (string, error) {
	for {
		line, err := internal.Prompt(ctx, t.host, t.host, "> ")
		if err != nil {
			return "", err
		}
		if line == "" {
			continue
		}

		verb, _, _ := strings.Cut(line, " ")
		if slices.ContainsFunc(verbs, func(v string) bool { return strings.EqualFold(v, verb) }) {
			return line, nil
		}
		if _, _, err := t.ParseNomination(line); err == nil {
			return line, nil
		}

		if err := t.host.WriteLine(fmt.Sprintf("Unknown command. Try: %s.", strings.Join(verbs, ", "))); err != nil {
			return "", err
		}
	}
}

// CollectVotes asks the host which hands are raised.
func (t *Table) CollectVotes(ctx context.Context, nom game.Nomination, eligible []string) ([]string, error) {
	prompt := fmt.Sprintf("Who votes to execute %s? Names separated by commas, 'all' or 'none': ", nom.Nominee)

	var voters []string
	_, err := internal.Prompt(ctx, t.host, t.host, prompt, internal.WithValidator(func(s string) (bool, string) {
		switch strings.ToLower(s) {
		case "none", "":
			voters = nil
			return true, ""
		case "all":
			voters = slices.Clone(eligible)
			return true, ""
		}

		voters = nil
		for _, name := range strings.Split(s, ",") {
			i := slices.IndexFunc(eligible, func(e string) bool { return strings.EqualFold(e, strings.TrimSpace(name)) })
			if i < 0 {
				return false, fmt.Sprintf("%s cannot vote.\n", strings.TrimSpace(name))
			}
			voters = append(voters, eligible[i])
		}
		return true, ""
	}))
	if err != nil {
		return nil, err
	}
	return voters, nil
}

// ChoosePlayers asks a player for n names, at their own terminal if they
// have one.
func (t *Table) ChoosePlayers(ctx context.Context, player, prompt string, n int) ([]string, error) {
	c := t.seat(player)
	if c == nil {
		c = t.host
		prompt = fmt.Sprintf("[%s] %s", player, prompt)
	}

	var picked []string
	_, err := internal.Prompt(ctx, c, c, prompt+" ", internal.WithMaxTries(3), internal.WithValidator(func(s string) (bool, string) {
		names, err := t.splitNames(s, n)
		if err != nil {
			return false, err.Error() + "\n"
		}
		picked = names
		return true, ""
	}))
	if err != nil {
		return nil, err
	}
	return picked, nil
}

func (t *Table) splitNames(s string, n int) ([]string, error) {
	var parts []string
	switch {
	case strings.Contains(s, ","):
		parts = strings.Split(s, ",")
	case n == 1:
		parts = []string{s}
	default:
		parts = strings.Fields(s)
	}
	if len(parts) != n {
		return nil, fmt.Errorf("name exactly %d player(s)", n)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, n)
	for _, p := range parts {
		name, ok := t.lookup(p)
		if !ok {
			return nil, fmt.Errorf("%q is not playing", strings.TrimSpace(p))
		}
		out = append(out, name)
	}
	return out, nil
}

// ParseNomination understands "nominate Ann Bob" and "Ann nominates Bob",
// and the same shapes for any other two-player command such as slay.
// Names may contain spaces as long as the split is unambiguous.
func (t *Table) ParseNomination(text string) (string, string, error) {
	words := strings.Fields(text)
	if len(words) < 3 {
		return "", "", fmt.Errorf("could not understand %q", text)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// "Ann nominates Bob"
	for i := 1; i < len(words)-1; i++ {
		w := strings.ToLower(words[i])
		if !strings.HasSuffix(w, "s") || len(w) < 4 {
			continue
		}
		a, okA := t.lookup(strings.Join(words[:i], " "))
		b, okB := t.lookup(strings.Join(words[i+1:], " "))
		if okA && okB {
			return a, b, nil
		}
	}

	// "nominate Ann Bob"
	rest := words[1:]
	for i := 1; i < len(rest); i++ {
		a, okA := t.lookup(strings.Join(rest[:i], " "))
		b, okB := t.lookup(strings.Join(rest[i:], " "))
		if okA && okB {
			return a, b, nil
		}
	}

	return "", "", fmt.Errorf("could not find two players in %q", text)
}
