package script

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/pixil98/go-clocktower/internal/abilities"
	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-clocktower/internal/rules"
	"github.com/pixil98/go-clocktower/internal/storage"
	"github.com/pixil98/go-errors"
	"golang.org/x/text/cases"
)

// Player count bounds for any script.
const (
	MinPlayers = 5
	MaxPlayers = 20
)

const bluffCount = 3

var fold = cases.Fold()

// Catalog answers questions about the loaded roles and scripts.
type Catalog struct {
	roles    storage.Storer[*Role]
	scripts  storage.Storer[*Script]
	handlers *abilities.Registry

	byName map[string]*Role
}

// NewCatalog resolves every script against the role store and checks that
// each script is playable: night orders only name the script's own roles and
// every role has an ability handler.
func NewCatalog(roles storage.Storer[*Role], scripts storage.Storer[*Script], handlers *abilities.Registry) (*Catalog, error) {
	c := &Catalog{
		roles:    roles,
		scripts:  scripts,
		handlers: handlers,
		byName:   map[string]*Role{},
	}

	el := errors.NewErrorList()

	for id, r := range roles.GetAll() {
		key := fold.String(r.Name)
		if _, ok := c.byName[key]; ok {
			el.Add(fmt.Errorf("role %s: name %q is used twice", id, r.Name))
			continue
		}
		c.byName[key] = r
	}

	for id, s := range scripts.GetAll() {
		if err := c.check(s); err != nil {
			el.Add(fmt.Errorf("script %s: %w", id, err))
		}
	}

	if err := el.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) check(s *Script) error {
	if err := s.resolve(c.roles); err != nil {
		return err
	}

	el := errors.NewErrorList()

	inScript := map[string]bool{}
	for _, r := range s.Roles {
		inScript[r.ID()] = true
		if _, err := c.handlers.Get(r.Get().Name); err != nil {
			el.Add(err)
		}
	}

	for _, order := range [][]storage.Ref[*Role]{s.FirstNight, s.OtherNight} {
		for _, r := range order {
			if !inScript[r.ID()] {
				el.Add(fmt.Errorf("night order role %q is not in the script", r.ID()))
			}
		}
	}

	return el.Err()
}

// Script returns the script with the given id.
func (c *Catalog) Script(id string) (*Script, error) {
	s, ok := c.scripts.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScript, id)
	}
	return s, nil
}

// Scripts returns the scripts as a selection menu.
func (c *Catalog) Scripts() *storage.SelectableStorer[*Script] {
	return storage.NewSelectableStorer(c.scripts)
}

// Role finds a role by case-insensitive name.
func (c *Catalog) Role(name string) (*Role, error) {
	r, ok := c.byName[fold.String(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
	return r, nil
}

func (c *Catalog) TypeOf(name string) game.CharacterType {
	r, err := c.Role(name)
	if err != nil {
		return game.TypeUnknown
	}
	return r.Type
}

func (c *Catalog) TeamOf(name string) game.Team {
	return c.TypeOf(name).Team()
}

func (c *Catalog) IsMinion(name string) bool {
	return c.TypeOf(name) == game.TypeMinion
}

func (c *Catalog) IsDemon(name string) bool {
	return c.TypeOf(name) == game.TypeDemon
}

// GetAbilityHandler returns the handler for a role.
func (c *Catalog) GetAbilityHandler(name string) (abilities.Handler, error) {
	return c.handlers.Get(name)
}

// FirstNightOrder returns the role names woken on the first night, in order.
func (c *Catalog) FirstNightOrder(id string) ([]string, error) {
	s, err := c.Script(id)
	if err != nil {
		return nil, err
	}
	return refNames(s.FirstNight), nil
}

// OtherNightOrder returns the role names woken on every later night.
func (c *Catalog) OtherNightOrder(id string) ([]string, error) {
	s, err := c.Script(id)
	if err != nil {
		return nil, err
	}
	return refNames(s.OtherNight), nil
}

func refNames(refs []storage.Ref[*Role]) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Get().Name)
	}
	return out
}

// Options returns the table rules of a script.
func (c *Catalog) Options(id string) (rules.Options, error) {
	s, err := c.Script(id)
	if err != nil {
		return rules.Options{}, err
	}
	opts := rules.DefaultOptions()
	opts.AllowSelfNomination = s.AllowSelfNomination
	if s.ExecutionsPerDay > 0 {
		opts.ExecutionsPerDay = s.ExecutionsPerDay
	}
	return opts, nil
}

type roleBook map[game.CharacterType][]string

func (b roleBook) RolesOfType(t game.CharacterType) []string {
	return b[t]
}

// RoleBook lists the script's role names by type.
func (c *Catalog) RoleBook(id string) (abilities.RoleBook, error) {
	s, err := c.Script(id)
	if err != nil {
		return nil, err
	}
	b := roleBook{}
	for _, r := range s.Roles {
		b[r.Get().Type] = append(b[r.Get().Type], r.Get().Name)
	}
	return b, nil
}

// GetDistribution picks the characters for a game of n players. The result
// is grouped by type; seating is up to the caller.
func (c *Catalog) GetDistribution(n int, id string, rng *rand.Rand) ([]string, error) {
	if n < MinPlayers || n > MaxPlayers {
		return nil, fmt.Errorf("%w: %d (need %d to %d)", ErrPlayerCount, n, MinPlayers, MaxPlayers)
	}

	s, err := c.Script(id)
	if err != nil {
		return nil, err
	}

	counts, ok := s.counts(n)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no distribution for %d players", ErrPlayerCount, s.Name, n)
	}

	pools := map[game.CharacterType][]*Role{}
	for _, r := range s.Roles {
		pools[r.Get().Type] = append(pools[r.Get().Type], r.Get())
	}
	// Fixed order keeps a seeded rng reproducible.
	for _, t := range []game.CharacterType{game.TypeDemon, game.TypeMinion, game.TypeOutsider, game.TypeTownsfolk} {
		p := pools[t]
		rng.Shuffle(len(p), func(i, j int) { p[i], p[j] = p[j], p[i] })
	}

	var chosen []*Role
	take := func(t game.CharacterType, k int) error {
		if len(pools[t]) < k {
			return fmt.Errorf("%w: need %d %s, have %d", ErrNotEnoughRoles, k, t, len(pools[t]))
		}
		chosen = append(chosen, pools[t][:k]...)
		return nil
	}

	if err := take(game.TypeDemon, counts.Demons); err != nil {
		return nil, err
	}
	if err := take(game.TypeMinion, counts.Minions); err != nil {
		return nil, err
	}

	extra := 0
	for _, r := range chosen {
		extra += r.ExtraOutsiders
	}
	extra = min(extra, counts.Townsfolk)
	outsiders := counts.Outsiders + extra
	townsfolk := counts.Townsfolk - extra

	// Large tables can use up every townsfolk. Spare seats become outsiders
	// and nobody can be dealt a character that needs a free townsfolk to
	// believe in.
	if available := len(pools[game.TypeTownsfolk]); townsfolk >= available {
		outsiders += townsfolk - available
		townsfolk = available
		pools[game.TypeOutsider] = slices.DeleteFunc(pools[game.TypeOutsider], func(r *Role) bool {
			return r.MasksAs == game.TypeTownsfolk
		})
	}

	if err := take(game.TypeOutsider, outsiders); err != nil {
		return nil, err
	}
	if err := take(game.TypeTownsfolk, townsfolk); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(chosen))
	for _, r := range chosen {
		out = append(out, r.Name)
	}
	return out, nil
}

// GetDemonBluffs picks up to three good characters that are not in play for
// the demon to claim. Crowded tables may leave fewer.
func (c *Catalog) GetDemonBluffs(inPlay []string, id string, rng *rand.Rand) ([]string, error) {
	s, err := c.Script(id)
	if err != nil {
		return nil, err
	}

	var pool []string
	for _, ref := range s.Roles {
		r := ref.Get()
		if r.Type != game.TypeTownsfolk && r.Type != game.TypeOutsider {
			continue
		}
		if r.MasksAs != game.TypeUnknown || slices.Contains(inPlay, r.Name) {
			continue
		}
		pool = append(pool, r.Name)
	}

	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:min(bluffCount, len(pool))], nil
}

// NotInPlay returns the script's characters of type t that nobody holds.
func (c *Catalog) NotInPlay(t game.CharacterType, inPlay []string, id string) ([]string, error) {
	s, err := c.Script(id)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, ref := range s.Roles {
		if r := ref.Get(); r.Type == t && !slices.Contains(inPlay, r.Name) {
			out = append(out, r.Name)
		}
	}
	return out, nil
}
