package services

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// errNoPromptStore is returned when a service was built without prompts.
var errNoPromptStore = errors.New("prompt store not configured")

// renderPrompt loads the named template and executes it with data.
func renderPrompt(store driven.PromptStore, name string, data any) (string, error) {
	if store == nil {
		return "", errNoPromptStore
	}
	text, err := store.Load(name)
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", name, err)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse prompt %s: %w", name, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return b.String(), nil
}
