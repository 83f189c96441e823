package script

import (
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/pixil98/go-clocktower/internal/abilities"
	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-clocktower/internal/storage"
	"github.com/pixil98/go-testutil"
)

const troubleBrewing = "trouble-brewing"

func loadStores(t *testing.T) (*storage.FileStore[*Role], *storage.FileStore[*Script]) {
	t.Helper()
	roles, err := storage.NewFileStore[*Role]("../../assets/roles")
	if err != nil {
		t.Fatalf("loading roles: %v", err)
	}
	scripts, err := storage.NewFileStore[*Script]("../../assets/scripts")
	if err != nil {
		t.Fatalf("loading scripts: %v", err)
	}
	return roles, scripts
}

func loadCatalog(t *testing.T) *Catalog {
	t.Helper()
	roles, scripts := loadStores(t)
	c, err := NewCatalog(roles, scripts, abilities.NewTroubleBrewingRegistry())
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	return c
}

func TestNewCatalog(t *testing.T) {
	c := loadCatalog(t)

	testutil.AssertEqual(t, "scripts", c.Scripts().Len(), 1)

	first, err := c.FirstNightOrder(troubleBrewing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "first night", first, []string{
		"Poisoner", "Washerwoman", "Librarian", "Investigator", "Chef", "Empath", "Fortune Teller", "Butler", "Spy",
	})

	other, err := c.OtherNightOrder(troubleBrewing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "other night starts", other[:3], []string{"Poisoner", "Monk", "Imp"})

	_, err = c.FirstNightOrder("bad-moon-rising")
	if !errors.Is(err, ErrUnknownScript) {
		t.Fatalf("expected ErrUnknownScript, got %v", err)
	}
}

func TestNewCatalog_MissingHandler(t *testing.T) {
	roles, scripts := loadStores(t)

	reg := abilities.NewRegistry()
	_ = reg.Register(abilities.RoleImp, &abilities.Imp{})

	_, err := NewCatalog(roles, scripts, reg)
	if !errors.Is(err, abilities.ErrNoHandler) {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}
	testutil.AssertErrorContains(t, err, `"Washerwoman"`)
}

func TestNewCatalog_NightOrderOutsideScript(t *testing.T) {
	roles, _ := loadStores(t)
	scripts := storage.NewMemoryStore(map[string]*Script{
		"tiny": {
			Name:       "Tiny",
			Roles:      []storage.Ref[*Role]{storage.NewRef[*Role]("imp"), storage.NewRef[*Role]("chef")},
			FirstNight: []storage.Ref[*Role]{storage.NewRef[*Role]("poisoner")},
			Distribution: []Counts{
				{Players: 5, Townsfolk: 3, Outsiders: 0, Minions: 1, Demons: 1},
			},
		},
	})

	_, err := NewCatalog(roles, scripts, abilities.NewTroubleBrewingRegistry())
	testutil.AssertErrorContains(t, err, `night order role "poisoner" is not in the script`)
}

func TestCatalog_Types(t *testing.T) {
	c := loadCatalog(t)

	tests := map[string]struct {
		role      string
		expType   game.CharacterType
		expTeam   game.Team
		expMinion bool
		expDemon  bool
	}{
		"imp":            {role: "Imp", expType: game.TypeDemon, expTeam: game.TeamEvil, expDemon: true},
		"baron":          {role: "Baron", expType: game.TypeMinion, expTeam: game.TeamEvil, expMinion: true},
		"fortune teller": {role: "fortune teller", expType: game.TypeTownsfolk, expTeam: game.TeamGood},
		"saint":          {role: "Saint", expType: game.TypeOutsider, expTeam: game.TeamGood},
		"unknown":        {role: "Pukka", expType: game.TypeUnknown, expTeam: game.TeamNone},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "type", c.TypeOf(tt.role), tt.expType)
			testutil.AssertEqual(t, "team", c.TeamOf(tt.role), tt.expTeam)
			testutil.AssertEqual(t, "minion", c.IsMinion(tt.role), tt.expMinion)
			testutil.AssertEqual(t, "demon", c.IsDemon(tt.role), tt.expDemon)
		})
	}

	_, err := c.GetAbilityHandler("Pukka")
	if !errors.Is(err, abilities.ErrNoHandler) {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}
}

func TestCatalog_GetDistribution(t *testing.T) {
	c := loadCatalog(t)
	s, err := c.Script(troubleBrewing)
	if err != nil {
		t.Fatal(err)
	}

	for n := MinPlayers; n <= MaxPlayers; n++ {
		for seed := int64(0); seed < 20; seed++ {
			roles, err := c.GetDistribution(n, troubleBrewing, rand.New(rand.NewSource(seed)))
			if err != nil {
				t.Fatalf("n=%d seed=%d: %v", n, seed, err)
			}
			if len(roles) != n {
				t.Fatalf("n=%d: got %d roles", n, len(roles))
			}

			got := map[game.CharacterType]int{}
			for _, r := range roles {
				got[c.TypeOf(r)]++
			}
			exp, _ := s.counts(n)
			if slices.Contains(roles, "Baron") {
				exp.Outsiders += 2
				exp.Townsfolk -= 2
			}
			if exp.Townsfolk > 13 {
				exp.Outsiders += exp.Townsfolk - 13
				exp.Townsfolk = 13
			}
			if exp.Townsfolk == 13 && slices.Contains(roles, "Drunk") {
				t.Fatalf("n=%d seed=%d: the Drunk has no townsfolk left to believe in", n, seed)
			}

			testutil.AssertEqual(t, "demons", got[game.TypeDemon], 1)
			testutil.AssertEqual(t, "minions", got[game.TypeMinion], exp.Minions)
			testutil.AssertEqual(t, "outsiders", got[game.TypeOutsider], exp.Outsiders)
			testutil.AssertEqual(t, "townsfolk", got[game.TypeTownsfolk], exp.Townsfolk)

			seen := map[string]bool{}
			for _, r := range roles {
				if seen[r] {
					t.Fatalf("n=%d: %s assigned twice", n, r)
				}
				seen[r] = true
			}
		}
	}
}

func TestCatalog_GetDistribution_Seeded(t *testing.T) {
	c := loadCatalog(t)
	a, err := c.GetDistribution(9, troubleBrewing, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.GetDistribution(9, troubleBrewing, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, "same seed", a, b)
}

func TestCatalog_GetDistribution_Bounds(t *testing.T) {
	c := loadCatalog(t)

	for _, n := range []int{0, 4, 21} {
		_, err := c.GetDistribution(n, troubleBrewing, rand.New(rand.NewSource(1)))
		if !errors.Is(err, ErrPlayerCount) {
			t.Errorf("n=%d: expected ErrPlayerCount, got %v", n, err)
		}
	}
}

func TestCatalog_GetDemonBluffs(t *testing.T) {
	c := loadCatalog(t)
	inPlay := []string{"Imp", "Poisoner", "Washerwoman", "Chef", "Empath", "Monk", "Saint"}

	bluffs, err := c.GetDemonBluffs(inPlay, troubleBrewing, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "count", len(bluffs), 3)

	for _, b := range bluffs {
		if slices.Contains(inPlay, b) {
			t.Errorf("bluff %s is in play", b)
		}
		if c.TeamOf(b) != game.TeamGood {
			t.Errorf("bluff %s is not good", b)
		}
		if b == "Drunk" {
			t.Errorf("the Drunk cannot be a bluff")
		}
	}
}

func TestCatalog_GetDemonBluffs_Crowded(t *testing.T) {
	c := loadCatalog(t)
	inPlay, err := c.NotInPlay(game.TypeTownsfolk, nil, troubleBrewing)
	if err != nil {
		t.Fatal(err)
	}
	inPlay = append(inPlay, "Saint", "Recluse")

	bluffs, err := c.GetDemonBluffs(inPlay, troubleBrewing, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "bluffs", bluffs, []string{"Butler"})
}

func TestCatalog_Options(t *testing.T) {
	c := loadCatalog(t)
	opts, err := c.Options(troubleBrewing)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, "self nomination", opts.AllowSelfNomination, false)
	testutil.AssertEqual(t, "executions", opts.ExecutionsPerDay, 1)

	book, err := c.RoleBook(troubleBrewing)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, "minions", len(book.RolesOfType(game.TypeMinion)), 4)
	testutil.AssertEqual(t, "townsfolk", len(book.RolesOfType(game.TypeTownsfolk)), 13)
}

func TestScript_Validate(t *testing.T) {
	tests := map[string]struct {
		script  Script
		expErrs []string
	}{
		"bad sums": {
			script: Script{
				Name:         "Broken",
				Roles:        []storage.Ref[*Role]{storage.NewRef[*Role]("imp")},
				Distribution: []Counts{{Players: 5, Townsfolk: 2, Minions: 1, Demons: 1}},
			},
			expErrs: []string{"sums to 4"},
		},
		"two demons": {
			script: Script{
				Name:         "Broken",
				Roles:        []storage.Ref[*Role]{storage.NewRef[*Role]("imp")},
				Distribution: []Counts{{Players: 5, Townsfolk: 3, Demons: 2}},
			},
			expErrs: []string{"exactly one demon"},
		},
		"empty": {
			script:  Script{},
			expErrs: []string{"name must be set", "roles must not be empty", "distribution must not be empty"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.script.Validate()
			for _, e := range tt.expErrs {
				testutil.AssertErrorContains(t, err, e)
			}
		})
	}
}

func TestRole_Validate(t *testing.T) {
	testutil.AssertErrorContains(t, (&Role{Name: "X"}).Validate(), "is not a character type")
	testutil.AssertErrorContains(t, (&Role{Name: "X", Type: game.TypeOutsider, MasksAs: game.TypeDemon}).Validate(), "masks_as")
	if err := (&Role{Name: "Drunk", Type: game.TypeOutsider, MasksAs: game.TypeTownsfolk}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
