// Package prompts renders the SmartBot generation prompts. The templates are
// stored in smartbot.json, embedded at compile time and parsed once.
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed smartbot.json
var smartbotFile []byte

const (
	analysisSystem = "analysis-system"
	analysisUser   = "analysis-user"
	finalizeSystem = "finalize-system"
	finalizeUser   = "finalize-user"
)

// Prompt is a rendered system and user prompt pair.
type Prompt struct {
	System string
	User   string
}

// AnalysisInput fills the fit analysis template. Every field is rendered as
// is, so callers substitute their own placeholder for missing values.
type AnalysisInput struct {
	JobTitle          string
	Company           string
	JobLocation       string
	EmploymentType    string
	ExperienceLevel   string
	Salary            string
	Description       string
	Requirements      string
	CandidateName     string
	CandidateLocation string
	Skills            string
	Experience        string
	Education         string
	Summary           string
}

// FinalizeInput fills the finalization template.
type FinalizeInput struct {
	InitialScore int
	Transcript   string
}

type templateSet struct {
	system map[string]string
	user   map[string]*template.Template
}

var load = sync.OnceValues(func() (*templateSet, error) {
	return parse(smartbotFile)
})

// parse reads a prompt file: "*-system" keys are plain text, "*-user" keys
// are text/template sources.
func parse(data []byte) (*templateSet, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file: %w", err)
	}
	set := &templateSet{system: map[string]string{}, user: map[string]*template.Template{}}
	for _, key := range []string{analysisSystem, finalizeSystem} {
		text, ok := raw[key]
		if !ok {
			return nil, fmt.Errorf("prompt key %q not found", key)
		}
		set.system[key] = text
	}
	for _, key := range []string{analysisUser, finalizeUser} {
		text, ok := raw[key]
		if !ok {
			return nil, fmt.Errorf("prompt key %q not found", key)
		}
		tmpl, err := template.New(key).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt %q: %w", key, err)
		}
		set.user[key] = tmpl
	}
	return set, nil
}

func (s *templateSet) render(system, user string, data any) (Prompt, error) {
	var sb strings.Builder
	if err := s.user[user].Execute(&sb, data); err != nil {
		return Prompt{}, fmt.Errorf("failed to render prompt %q: %w", user, err)
	}
	return Prompt{System: s.system[system], User: sb.String()}, nil
}

// Analysis renders the fit analysis prompt.
func Analysis(in AnalysisInput) (Prompt, error) {
	set, err := load()
	if err != nil {
		return Prompt{}, err
	}
	return set.render(analysisSystem, analysisUser, in)
}

// Finalize renders the prompt that turns a finished dialogue into the final
// assessment.
func Finalize(in FinalizeInput) (Prompt, error) {
	set, err := load()
	if err != nil {
		return Prompt{}, err
	}
	return set.render(finalizeSystem, finalizeUser, in)
}
