package setup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestParse(t *testing.T) {
	tests := map[string]struct {
		yaml   string
		exp    *Record
		expErr string
	}{
		"valid": {
			yaml: `
name: Friday Night
script: trouble-brewing
seed: 7
narrator: nats
players: [Ann, Bob, Cy, Dee, Eve]
`,
			exp: &Record{
				Name:     "Friday Night",
				Script:   "trouble-brewing",
				Seed:     7,
				Narrator: NarratorNats,
				Players:  []string{"Ann", "Bob", "Cy", "Dee", "Eve"},
			},
		},
		"too few players": {
			yaml:   "name: x\nscript: trouble-brewing\nplayers: [Ann, Bob]\n",
			expErr: "need 5 to 20 players, have 2",
		},
		"duplicate player": {
			yaml:   "name: x\nscript: trouble-brewing\nplayers: [Ann, Bob, Cy, Dee, ann]\n",
			expErr: "listed twice",
		},
		"missing script": {
			yaml:   "name: x\nplayers: [Ann, Bob, Cy, Dee, Eve]\n",
			expErr: "script must be set",
		},
		"bad narrator": {
			yaml:   "name: x\nscript: s\nnarrator: oracle\nplayers: [Ann, Bob, Cy, Dee, Eve]\n",
			expErr: "narrator \"oracle\"",
		},
		"not yaml": {
			yaml:   "name: [",
			expErr: "parsing setup",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Parse([]byte(tt.yaml))
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "record", got, tt.exp)
		})
	}
}

func TestLoadFile(t *testing.T) {
	r := &Record{Name: "Club", Script: "trouble-brewing", Players: []string{"A", "B", "C", "D", "E", "F"}}
	data, err := Marshal(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "club.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "players", got.Players, r.Players)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	testutil.AssertErrorContains(t, err, "reading setup")
}

func TestRecord_ID(t *testing.T) {
	tests := map[string]string{
		"Friday Night":     "friday-night",
		"  The Club!! 2  ": "the-club-2",
		"Café":             "caf",
		"--":               "",
	}
	for name, exp := range tests {
		t.Run(name, func(t *testing.T) {
			r := &Record{Name: name}
			testutil.AssertEqual(t, "id", r.ID(), exp)
		})
	}
}

func TestRecord_Selector(t *testing.T) {
	r := &Record{Name: "Club", Players: make([]string, 8)}
	testutil.AssertEqual(t, "selector", r.Selector(), "Club (8 players)")
}
