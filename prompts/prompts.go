// Package prompts renders the engine's LLM prompts from embedded Go templates.
package prompts

import (
	"bytes"
	"embed"
	"text/template"
)

//go:embed templates/*
var templatesFS embed.FS

func loadPrompt(templatePath string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(templatesFS, templatePath)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

// ClassifyPromptData feeds the ambiguity classification templates.
type ClassifyPromptData struct {
	Query               string
	PriorClarifications []string
}

// RenderClassifyPrompt renders the system and user prompts for scoring a
// query's ambiguity.
func RenderClassifyPrompt(data ClassifyPromptData) (systemPrompt, userPrompt string, err error) {
	systemPrompt, err = loadPrompt("templates/classify_ambiguity_system.md", data)
	if err != nil {
		return "", "", err
	}

	userPrompt, err = loadPrompt("templates/classify_ambiguity_user.md", data)
	if err != nil {
		return "", "", err
	}

	return systemPrompt, userPrompt, nil
}

// PlanPromptData feeds the clarification planning templates.
type PlanPromptData struct {
	Query        string
	Rationale    string
	MaxQuestions int
}

// RenderPlanPrompt renders the system and user prompts for generating
// clarifying questions.
func RenderPlanPrompt(data PlanPromptData) (systemPrompt, userPrompt string, err error) {
	systemPrompt, err = loadPrompt("templates/plan_clarifications_system.md", data)
	if err != nil {
		return "", "", err
	}

	userPrompt, err = loadPrompt("templates/plan_clarifications_user.md", data)
	if err != nil {
		return "", "", err
	}

	return systemPrompt, userPrompt, nil
}

// SynthesisPromptData feeds the answer synthesis templates.
type SynthesisPromptData struct {
	Query          string
	Clarifications []string
	Context        string
}

// RenderSynthesisPrompt renders the system and user prompts for grounded
// answer generation.
func RenderSynthesisPrompt(data SynthesisPromptData) (systemPrompt, userPrompt string, err error) {
	systemPrompt, err = loadPrompt("templates/synthesize_answer_system.md", data)
	if err != nil {
		return "", "", err
	}

	userPrompt, err = loadPrompt("templates/synthesize_answer_user.md", data)
	if err != nil {
		return "", "", err
	}

	return systemPrompt, userPrompt, nil
}
