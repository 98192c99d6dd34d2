// Package prompt renders the system prompt sent to the model backend from
// an assembled context bundle.
package prompt

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/zulandar/atelier/internal/assemble"
)

// promptTemplate is the system prompt for artifact generation. Dependency
// sections carry the approved content of upstream artifacts.
const promptTemplate = `# Atelier — Artifact Author

You are the author of project artifacts for {{ .ProjectName }}, a {{ .ProjectType }} project.

## Current Task

{{ if .IsUpdate }}Revise the existing **{{ .ArtifactType }}** artifact named "{{ .ArtifactName }}" ({{ .Phase }} phase).{{ else }}Write the first draft of the **{{ .ArtifactType }}** artifact named "{{ .ArtifactName }}" ({{ .Phase }} phase).{{ end }}
{{ if .Syntax }}
Produce the artifact body in {{ .Syntax }}.
{{ end }}
## Rules

1. **Ground every statement in the context below** — do not invent requirements that contradict an upstream artifact
2. **Stay in scope** — produce only the {{ .ArtifactType }}; commentary belongs in its own channel, never inside the artifact body
3. **Be complete** — a reader with no other context should understand the artifact on its own
{{ if .IsUpdate }}4. **Preserve what works** — revise the existing content, do not discard sections the user has not asked to change
{{ end }}{{ range .Dependencies }}
## Context: {{ .Title }}
{{ range .Bodies }}
{{ . }}
{{ end }}{{ end }}`

// view is the template data extracted from a bundle.
type view struct {
	ProjectName  string
	ProjectType  string
	ArtifactName string
	ArtifactType string
	Phase        string
	Syntax       string
	IsUpdate     bool
	Dependencies []section
}

// section is one upstream artifact type's approved content.
type section struct {
	Title  string
	Bodies []string
}

// reserved bundle keys that are not dependency sections.
var reserved = map[string]bool{
	"project":      true,
	"artifact":     true,
	"is_update":    true,
	"user_message": true,
}

// Render generates the system prompt from an assembled bundle.
func Render(bundle assemble.Bundle) (string, error) {
	if bundle == nil {
		return "", fmt.Errorf("prompt: bundle is nil")
	}

	tmpl, err := template.New("prompt").Parse(promptTemplate)
	if err != nil {
		return "", fmt.Errorf("prompt: parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, buildView(bundle)); err != nil {
		return "", fmt.Errorf("prompt: execute template: %w", err)
	}
	return buf.String(), nil
}

func buildView(bundle assemble.Bundle) view {
	v := view{}
	if m, ok := bundle["project"].(map[string]interface{}); ok {
		v.ProjectName, _ = m["name"].(string)
		v.ProjectType, _ = m["type"].(string)
	}
	if m, ok := bundle["artifact"].(map[string]interface{}); ok {
		v.ArtifactName, _ = m["name"].(string)
		v.ArtifactType, _ = m["type"].(string)
		v.Phase, _ = m["phase"].(string)
		v.Syntax, _ = m["syntax"].(string)
	}
	v.IsUpdate, _ = bundle["is_update"].(bool)

	keys := make([]string, 0, len(bundle))
	for k := range bundle {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		sec := section{Title: sectionTitle(k)}
		switch val := bundle[k].(type) {
		case string:
			sec.Bodies = []string{val}
		case []string:
			sec.Bodies = val
		default:
			continue
		}
		v.Dependencies = append(v.Dependencies, sec)
	}
	return v
}

// sectionTitle turns a slug key like "use_cases" into "Use Cases".
func sectionTitle(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
