package narration

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

var templateFuncs = sprig.TxtFuncMap()

// DefaultTemplates are the built-in lines for every kind. Data keys are
// capitalized so templates read like struct access.
var DefaultTemplates = map[Kind]string{
	KindWelcome: `Welcome to {{ .Script }}. {{ len .Players }} players have gathered: {{ .Players | join ", " }}. ` +
		`Somewhere among you a demon hides.`,
	KindNightFalls: `Night {{ .Night }} falls. Everyone, close your eyes.`,
	KindDawn: `Dawn breaks on day {{ .Day }}. ` +
		`{{ if .Deaths }}{{ .Deaths | join " and " }} did not survive the night.{{ else }}Nobody died in the night.{{ end }}`,
	KindNomination: `{{ .Nominator }} nominates {{ .Nominee }}. {{ .Required }} votes are needed to execute.`,
	KindVoteResult: `{{ .Nominee }} received {{ .Votes }} {{ if eq (int .Votes) 1 }}vote{{ else }}votes{{ end }}. ` +
		`{{ if .Executed }}That is enough.{{ else }}{{ .Required }} were needed.{{ end }}`,
	KindExecution: `{{ .Player }} has been executed.`,
	KindSlay:      `{{ .Slayer }} takes aim at {{ .Target }}. {{ if .Died }}{{ .Target }} falls dead!{{ else }}Nothing happens.{{ end }}`,
	KindGameOver:  `The game is over. The {{ .Winner }} team wins. {{ .Reason }}`,
}

// ExpandTemplate expands a template string using the provided data.
func ExpandTemplate(tmplStr string, data any) (string, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	return execute(tmpl, data)
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// TemplateNarrator renders text/template lines with the sprig function set.
type TemplateNarrator struct {
	templates map[Kind]*template.Template
}

// NewTemplateNarrator parses the default templates with overrides applied on
// top. Every template is parsed up front so a broken override fails here.
func NewTemplateNarrator(overrides map[Kind]string) (*TemplateNarrator, error) {
	src := maps.Clone(DefaultTemplates)
	maps.Copy(src, overrides)

	n := &TemplateNarrator{templates: make(map[Kind]*template.Template, len(src))}
	for kind, text := range src {
		tmpl, err := template.New(string(kind)).Funcs(templateFuncs).Option("missingkey=zero").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", kind, err)
		}
		n.templates[kind] = tmpl
	}
	return n, nil
}

func (n *TemplateNarrator) Generate(_ context.Context, kind Kind, data map[string]any) (string, error) {
	tmpl, ok := n.templates[kind]
	if !ok {
		return "", fmt.Errorf("no template for %q", kind)
	}
	return execute(tmpl, data)
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
