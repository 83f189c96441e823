package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-clocktower/internal/session"
	"github.com/pixil98/go-clocktower/internal/setup"
	"github.com/pixil98/go-errors"
)

type GameConfig struct {
	DiscussionTimeout string `json:"discussion_timeout" env:"CLOCKTOWER_DISCUSSION_TIMEOUT"`
	NarrationTimeout  string `json:"narration_timeout" env:"CLOCKTOWER_NARRATION_TIMEOUT"`
	MaxPromptTries    int    `json:"max_prompt_tries"`
	Width             int    `json:"width"`
	// SetupPath is a YAML table every game uses instead of asking the host.
	SetupPath string `json:"setup_path" env:"CLOCKTOWER_SETUP"`
}

func (c *GameConfig) validate() error {
	el := errors.NewErrorList()

	for name, v := range map[string]string{
		"discussion_timeout": c.DiscussionTimeout,
		"narration_timeout":  c.NarrationTimeout,
	} {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil {
			el.Add(fmt.Errorf("parsing %s: %w", name, err))
		} else if d <= 0 {
			el.Add(fmt.Errorf("%s must be positive", name))
		}
	}
	if c.MaxPromptTries < 0 {
		el.Add(fmt.Errorf("max_prompt_tries must not be negative"))
	}
	if c.Width < 0 {
		el.Add(fmt.Errorf("width must not be negative"))
	}

	return el.Err()
}

// sessionConfig converts the settings. Unset durations are left at zero so
// the storyteller's defaults apply.
func (c *GameConfig) sessionConfig() (session.Config, error) {
	cfg := session.Config{
		Width:          c.Width,
		MaxPromptTries: c.MaxPromptTries,
	}

	var err error
	if c.DiscussionTimeout != "" {
		if cfg.DiscussionTimeout, err = time.ParseDuration(c.DiscussionTimeout); err != nil {
			return cfg, fmt.Errorf("parsing discussion_timeout: %w", err)
		}
	}
	if c.NarrationTimeout != "" {
		if cfg.NarrationTimeout, err = time.ParseDuration(c.NarrationTimeout); err != nil {
			return cfg, fmt.Errorf("parsing narration_timeout: %w", err)
		}
	}
	return cfg, nil
}

// preset loads the fixed table, if one is configured.
func (c *GameConfig) preset() (*setup.Record, error) {
	if c.SetupPath == "" {
		return nil, nil
	}
	return setup.LoadFile(c.SetupPath)
}
