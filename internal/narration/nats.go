package narration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SubjectPrefix is prepended to the kind to form a request subject.
const SubjectPrefix = "clocktower.narration"

// Requester sends a request and waits for a single reply.
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

type request struct {
	Kind Kind           `json:"kind"`
	Data map[string]any `json:"data"`
}

type reply struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// NatsNarrator asks a remote generator for text over request/reply.
type NatsNarrator struct {
	requester Requester
	prefix    string
}

// NewNatsNarrator returns a narrator publishing requests on
// <prefix>.<kind>. An empty prefix uses SubjectPrefix.
func NewNatsNarrator(r Requester, prefix string) *NatsNarrator {
	if prefix == "" {
		prefix = SubjectPrefix
	}
	return &NatsNarrator{requester: r, prefix: prefix}
}

func (n *NatsNarrator) Generate(ctx context.Context, kind Kind, data map[string]any) (string, error) {
	body, err := json.Marshal(request{Kind: kind, Data: data})
	if err != nil {
		return "", fmt.Errorf("marshalling narration request: %w", err)
	}

	raw, err := n.requester.Request(ctx, n.prefix+"."+string(kind), body)
	if err != nil {
		return "", fmt.Errorf("requesting %s narration: %w", kind, err)
	}

	var r reply
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", fmt.Errorf("unmarshalling narration reply: %w", err)
	}
	if r.Error != "" {
		return "", errors.New(r.Error)
	}
	if strings.TrimSpace(r.Text) == "" {
		return "", fmt.Errorf("empty %s narration", kind)
	}
	return r.Text, nil
}

// Responder answers narration requests with a local narrator. It is the
// reply side of NatsNarrator.
type Responder struct {
	Narrator Narrator
}

// Handle decodes a request, generates text and encodes the reply.
func (r Responder) Handle(ctx context.Context, data []byte) []byte {
	var req request
	var rep reply
	if err := json.Unmarshal(data, &req); err != nil {
		rep.Error = fmt.Sprintf("decoding request: %v", err)
	} else if text, err := r.Narrator.Generate(ctx, req.Kind, req.Data); err != nil {
		rep.Error = err.Error()
	} else {
		rep.Text = text
	}

	out, _ := json.Marshal(rep)
	return out
}
