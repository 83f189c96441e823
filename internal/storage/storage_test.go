package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pixil98/go-clocktower/internal"
	"github.com/pixil98/go-testutil"
)

type testSpec struct {
	Name  string `json:"name"`
	Valid bool   `json:"valid"`
}

func (s *testSpec) Validate() error {
	if !s.Valid {
		return errors.New("spec is invalid")
	}
	return nil
}

func (s *testSpec) Selector() string {
	return s.Name
}

func writeAsset(t *testing.T, dir, file string, a any) {
	t.Helper()
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshalling: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), data, 0644); err != nil {
		t.Fatalf("writing: %v", err)
	}
}

func TestAsset_Validate(t *testing.T) {
	tests := map[string]struct {
		asset   Asset[*testSpec]
		expErrs []string
	}{
		"valid": {
			asset: Asset[*testSpec]{Version: 1, Identifier: "trouble-brewing", Spec: &testSpec{Valid: true}},
		},
		"missing version": {
			asset:   Asset[*testSpec]{Identifier: "imp", Spec: &testSpec{Valid: true}},
			expErrs: []string{"version must be set"},
		},
		"missing id": {
			asset:   Asset[*testSpec]{Version: 1, Spec: &testSpec{Valid: true}},
			expErrs: []string{"id must be set"},
		},
		"bad id": {
			asset:   Asset[*testSpec]{Version: 1, Identifier: "Fortune Teller", Spec: &testSpec{Valid: true}},
			expErrs: []string{"lowercase alphanumeric"},
		},
		"missing spec": {
			asset:   Asset[*testSpec]{Version: 1, Identifier: "imp"},
			expErrs: []string{"spec must be set"},
		},
		"everything wrong": {
			asset:   Asset[*testSpec]{Spec: &testSpec{}},
			expErrs: []string{"version must be set", "id must be set", "spec is invalid"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.asset.Validate()
			if len(tt.expErrs) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			for _, e := range tt.expErrs {
				testutil.AssertErrorContains(t, err, e)
			}
		})
	}
}

func TestRef(t *testing.T) {
	st := NewMemoryStore(map[string]*testSpec{"imp": {Name: "Imp", Valid: true}})

	var ref Ref[*testSpec]
	if err := json.Unmarshal([]byte(`"imp"`), &ref); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	testutil.AssertEqual(t, "id", ref.ID(), "imp")
	if err := ref.Resolve(st); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	testutil.AssertEqual(t, "name", ref.Get().Name, "Imp")

	b, err := json.Marshal(ref)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	testutil.AssertEqual(t, "json", string(b), `"imp"`)

	missing := NewRef[*testSpec]("pukka")
	testutil.AssertErrorContains(t, missing.Resolve(st), `testSpec "pukka" not found`)
	testutil.AssertErrorContains(t, Ref[*testSpec]{}.Validate(), "testSpec reference is required")
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "a.json", Asset[*testSpec]{Version: 1, Identifier: "alpha", Spec: &testSpec{Name: "Alpha", Valid: true}})
	writeAsset(t, dir, "b.json", Asset[*testSpec]{Version: 1, Identifier: "beta", Spec: &testSpec{Name: "Beta", Valid: true}})
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	st, err := NewFileStore[*testSpec](dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "count", len(st.GetAll()), 2)

	v, ok := st.Get("beta")
	testutil.AssertEqual(t, "found", ok, true)
	testutil.AssertEqual(t, "name", v.Name, "Beta")

	_, ok = st.Get("gamma")
	testutil.AssertEqual(t, "missing", ok, false)

	if err := st.Save("gamma", &testSpec{Name: "Gamma", Valid: true}); err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded, err := NewFileStore[*testSpec](dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	v, ok = reloaded.Get("gamma")
	testutil.AssertEqual(t, "saved", ok, true)
	testutil.AssertEqual(t, "saved name", v.Name, "Gamma")

	testutil.AssertErrorContains(t, st.Save("delta", &testSpec{}), "spec is invalid")
}

func TestNewFileStore_Errors(t *testing.T) {
	tests := map[string]struct {
		setup  func(t *testing.T, dir string)
		expErr string
	}{
		"invalid json": {
			setup: func(t *testing.T, dir string) {
				if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0644); err != nil {
					t.Fatal(err)
				}
			},
			expErr: "unmarshalling asset",
		},
		"invalid spec": {
			setup: func(t *testing.T, dir string) {
				writeAsset(t, dir, "a.json", Asset[*testSpec]{Version: 1, Identifier: "alpha", Spec: &testSpec{}})
			},
			expErr: "validating a.json",
		},
		"duplicate id": {
			setup: func(t *testing.T, dir string) {
				writeAsset(t, dir, "a.json", Asset[*testSpec]{Version: 1, Identifier: "alpha", Spec: &testSpec{Valid: true}})
				writeAsset(t, dir, "b.json", Asset[*testSpec]{Version: 1, Identifier: "alpha", Spec: &testSpec{Valid: true}})
			},
			expErr: `duplicate id "alpha"`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)
			_, err := NewFileStore[*testSpec](dir)
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}

	_, err := NewFileStore[*testSpec]("/nonexistent/clocktower/assets")
	if err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestSelectableStorer(t *testing.T) {
	st := NewMemoryStore(map[string]*testSpec{
		"sects-and-violets": {Name: "Sects and Violets", Valid: true},
		"trouble-brewing":   {Name: "Trouble Brewing", Valid: true},
		"bad-moon-rising":   {Name: "Bad Moon Rising", Valid: true},
	})
	ss := NewSelectableStorer(st)

	testutil.AssertEqual(t, "len", ss.Len(), 3)
	testutil.AssertEqual(t, "first", ss.Select(1), "bad-moon-rising")
	testutil.AssertEqual(t, "last", ss.Select(3), "trouble-brewing")
	testutil.AssertEqual(t, "zero", ss.Select(0), "")
	testutil.AssertEqual(t, "past end", ss.Select(4), "")

	var out strings.Builder
	got, err := ss.Prompt(context.Background(), &out, internal.NewLineReader(strings.NewReader("nine\n2\n")), "Choose a script:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "selection", got, "sects-and-violets")
	if !strings.Contains(out.String(), " 3. Trouble Brewing") {
		t.Errorf("menu missing option: %q", out.String())
	}
	if !strings.Contains(out.String(), "Invalid selection!") {
		t.Errorf("expected invalid selection message: %q", out.String())
	}
}

func TestExtensionState(t *testing.T) {
	var e ExtensionState
	if err := e.Set("voice", map[string]string{"name": "narrator"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var voice map[string]string
	found, err := e.Get("voice", &voice)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	testutil.AssertEqual(t, "found", found, true)
	testutil.AssertEqual(t, "name", voice["name"], "narrator")

	found, err = e.Get("model", &voice)
	testutil.AssertEqual(t, "missing", found, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var n int
	_, err = e.Get("voice", &n)
	testutil.AssertErrorContains(t, err, `unmarshal extension "voice"`)

	e.Delete("voice")
	found, _ = e.Get("voice", &voice)
	testutil.AssertEqual(t, "deleted", found, false)

	testutil.AssertErrorContains(t, e.Set("bad", make(chan int)), `marshal extension "bad"`)
}

func TestExtension(t *testing.T) {
	var e ExtensionState
	if err := e.Set("templates", map[string]string{"dawn": "Morning."}); err != nil {
		t.Fatal(err)
	}

	got, found, err := Extension[map[string]string](e, "templates")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "found", found, true)
	testutil.AssertEqual(t, "dawn", got["dawn"], "Morning.")

	missing, found, err := Extension[[]string](e, "voices")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "found", found, false)
	testutil.AssertEqual(t, "zero", len(missing), 0)
}
