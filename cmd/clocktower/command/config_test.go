package command

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pixil98/go-clocktower/internal/script"
	"github.com/pixil98/go-testutil"
)

const assets = "../../../assets"

func validConfig() *Config {
	return &Config{
		TickInterval: "30s",
		Listeners:    []ListenerConfig{{Protocol: ListenerTypeTelnet, Port: 4000}},
		Storage: StorageConfig{
			Roles:   AssetConfig[*script.Role]{Path: filepath.Join(assets, "roles")},
			Scripts: AssetConfig[*script.Script]{Path: filepath.Join(assets, "scripts")},
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		mutate  func(c *Config)
		expErrs []string
	}{
		"valid": {
			mutate: func(c *Config) {},
		},
		"short tick": {
			mutate:  func(c *Config) { c.TickInterval = "10ms" },
			expErrs: []string{"tick_interval must be at least 1 second"},
		},
		"bad log level": {
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			expErrs: []string{"parsing log_level"},
		},
		"no listeners": {
			mutate:  func(c *Config) { c.Listeners = nil },
			expErrs: []string{"at least one listener is required"},
		},
		"bad listener": {
			mutate:  func(c *Config) { c.Listeners = []ListenerConfig{{HostKeyPath: "key"}} },
			expErrs: []string{"listener 0", "port must be set", "host_key_path only applies to ssh"},
		},
		"missing assets": {
			mutate:  func(c *Config) { c.Storage.Roles.Path = ""; c.Storage.Scripts.Path = "nowhere" },
			expErrs: []string{"roles: path is required", `scripts: invalid path "nowhere"`},
		},
		"nats": {
			mutate:  func(c *Config) { c.Nats = NatsConfig{StartTimeout: "soon", ServeNarration: true} },
			expErrs: []string{"parsing start_timeout", "serve_narration needs nats to be enabled"},
		},
		"game": {
			mutate: func(c *Config) {
				c.Game = GameConfig{DiscussionTimeout: "-1m", NarrationTimeout: "never", MaxPromptTries: -1}
			},
			expErrs: []string{"discussion_timeout must be positive", "parsing narration_timeout", "max_prompt_tries"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
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

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv("CLOCKTOWER_TICK_INTERVAL", "1m")
	t.Setenv("CLOCKTOWER_JOURNAL", "/tmp/games.db")
	t.Setenv("CLOCKTOWER_NATS_ENABLED", "true")
	t.Setenv("CLOCKTOWER_DISCUSSION_TIMEOUT", "90s")

	c := validConfig()
	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "tick", c.TickInterval, "1m")
	testutil.AssertEqual(t, "journal", c.Storage.Journal, "/tmp/games.db")
	testutil.AssertEqual(t, "nats", c.Nats.Enabled, true)
	testutil.AssertEqual(t, "discussion", c.Game.DiscussionTimeout, "90s")
	testutil.AssertEqual(t, "untouched", c.Listeners[0].Port, uint16(4000))
}

func TestListenerType_UnmarshalText(t *testing.T) {
	var lt ListenerType
	if err := lt.UnmarshalText([]byte("ssh")); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, "ssh", lt, ListenerTypeSSH)
	testutil.AssertErrorContains(t, lt.UnmarshalText([]byte("gopher")), "unknown listener type")
}

func TestGameConfig(t *testing.T) {
	c := GameConfig{DiscussionTimeout: "2m", Width: 72}
	got, err := c.sessionConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "discussion", got.DiscussionTimeout, 2*time.Minute)
	testutil.AssertEqual(t, "narration default", got.NarrationTimeout, time.Duration(0))
	testutil.AssertEqual(t, "width", got.Width, 72)

	rec, err := c.preset()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected no preset, got %v", rec)
	}

	path := filepath.Join(t.TempDir(), "table.yaml")
	yaml := "name: Tuesday\nscript: trouble-brewing\nplayers: [Ann, Bob, Cy, Dee, Eve]\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	c.SetupPath = path
	rec, err = c.preset()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "preset players", len(rec.Players), 5)
}

func TestStorageConfig_Build(t *testing.T) {
	c := validConfig().Storage
	c.Setups.Path = filepath.Join(assets, "setups")
	c.Journal = filepath.Join(t.TempDir(), "journal.db")

	catalog, err := c.BuildCatalog()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "scripts", catalog.Scripts().Len(), 1)

	setups, err := c.BuildSetups()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, ok := setups.Get("friday-club")
	testutil.AssertEqual(t, "friday club", ok, true)

	j, err := c.BuildJournal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "close", j.Close(), nil)
}

func TestBuildWorkers(t *testing.T) {
	c := validConfig()
	c.Nats = NatsConfig{Enabled: true, Port: -1, ServeNarration: true}

	workers, err := BuildWorkers(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"telnet-0", "driver", "sessions", "nats", "narration"} {
		if _, ok := workers[name]; !ok {
			t.Errorf("missing worker %s", name)
		}
	}

	_, err = BuildWorkers("not a config")
	testutil.AssertErrorContains(t, err, "unable to cast config")
}

func TestListenerConfig_HostKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host_key")
	cl := &ListenerConfig{Protocol: ListenerTypeSSH, Port: 2222, HostKeyPath: path}

	first, err := cl.loadOrGenerateHostKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("key not written: %v", err)
	}

	second, err := cl.loadOrGenerateHostKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "same key", string(second.PublicKey().Marshal()), string(first.PublicKey().Marshal()))

	if err := os.WriteFile(path, []byte("not a key"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err = cl.loadOrGenerateHostKey()
	testutil.AssertErrorContains(t, err, "parsing host key")

	ephemeral, err := (&ListenerConfig{Protocol: ListenerTypeSSH, Port: 2222}).loadOrGenerateHostKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "key type", ephemeral.PublicKey().Type(), "ssh-ed25519")
}

func TestListenerType_String(t *testing.T) {
	testutil.AssertEqual(t, "telnet", ListenerTypeTelnet.String(), "telnet")
	testutil.AssertEqual(t, "ssh", ListenerTypeSSH.String(), "ssh")
	testutil.AssertEqual(t, "unknown", ListenerType(7).String(), "ListenerType(7)")
}
