// Package narration turns game moments into spoken text. The storyteller only
// depends on the Narrator interface; generation may be local or remote.
package narration

import (
	"context"
	"fmt"
	"strings"
)

// Kind names a narrated moment.
type Kind string

const (
	KindWelcome    Kind = "welcome"
	KindNightFalls Kind = "night_falls"
	KindDawn       Kind = "dawn"
	KindNomination Kind = "nomination"
	KindVoteResult Kind = "vote_result"
	KindExecution  Kind = "execution"
	KindSlay       Kind = "slay"
	KindGameOver   Kind = "game_over"
)

// Narrator generates the text for a moment from its data.
type Narrator interface {
	Generate(ctx context.Context, kind Kind, data map[string]any) (string, error)
}

// NarratorFunc adapts a function to a Narrator.
type NarratorFunc func(ctx context.Context, kind Kind, data map[string]any) (string, error)

func (f NarratorFunc) Generate(ctx context.Context, kind Kind, data map[string]any) (string, error) {
	return f(ctx, kind, data)
}

var fallbackNarrator, _ = NewTemplateNarrator(nil)

// Fallback renders the built-in template for kind. It never fails; when the
// template cannot render it returns a plain description of the data.
func Fallback(kind Kind, data map[string]any) string {
	if text, err := fallbackNarrator.Generate(context.Background(), kind, data); err == nil && strings.TrimSpace(text) != "" {
		return text
	}

	var sb strings.Builder
	sb.WriteString(strings.ReplaceAll(string(kind), "_", " "))
	for _, k := range sortedKeys(data) {
		fmt.Fprintf(&sb, " %s=%v", k, data[k])
	}
	return sb.String()
}

// WithVoice passes a voice and model hint to n with every request. Empty
// values are left out.
func WithVoice(n Narrator, voice, model string) Narrator {
	if voice == "" && model == "" {
		return n
	}
	return NarratorFunc(func(ctx context.Context, kind Kind, data map[string]any) (string, error) {
		styled := make(map[string]any, len(data)+2)
		for k, v := range data {
			styled[k] = v
		}
		if voice != "" {
			styled["Voice"] = voice
		}
		if model != "" {
			styled["Model"] = model
		}
		return n.Generate(ctx, kind, styled)
	})
}
