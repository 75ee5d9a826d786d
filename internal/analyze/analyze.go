// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package analyze asks the completion provider to lint, improve or
// generate tests for a code snippet. Responses are requested as JSON
// matching a generated schema; fenced or slightly malformed replies are
// recovered where possible instead of failing the call.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"aliengine/internal/chat"
)

// Issue is one problem found by a lint analysis.
type Issue struct {
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
}

// Suggestion is one proposed improvement.
type Suggestion struct {
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

// TestCase names one generated test and what it verifies.
type TestCase struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LintReport is the result of a lint analysis.
type LintReport struct {
	Issues      []Issue `json:"issues"`
	Explanation string  `json:"explanation"`
}

// SuggestReport is the result of an improvement analysis.
type SuggestReport struct {
	Suggestions  []Suggestion `json:"suggestions"`
	ImprovedCode string       `json:"improved_code"`
	Explanation  string       `json:"explanation"`
}

// TestReport is the result of test generation.
type TestReport struct {
	TestCode    string     `json:"test_code"`
	Explanation string     `json:"explanation"`
	TestCases   []TestCase `json:"test_cases"`
}

// Analyzer drives code analysis through a chat client.
type Analyzer struct {
	client *chat.Client
	model  string
	log    zerolog.Logger
}

// NewAnalyzer returns an analyzer using the given client and model.
func NewAnalyzer(client *chat.Client, model string, log zerolog.Logger) *Analyzer {
	return &Analyzer{client: client, model: model, log: log}
}

// Lint analyzes code for issues, bugs and style problems.
func (a *Analyzer) Lint(ctx context.Context, language, code string) (*LintReport, error) {
	report := &LintReport{}
	prompt := fmt.Sprintf(
		"Analyze this %s code for potential issues, bugs, and style problems:\n\n```%s\n%s\n```",
		language, language, code)
	if err := a.complete(ctx, prompt, "You are a code analysis expert. Provide detailed, accurate code analysis in JSON format only.", report); err != nil {
		return nil, err
	}
	return report, nil
}

// Suggest proposes improvements and an improved version of the code.
func (a *Analyzer) Suggest(ctx context.Context, language, code string) (*SuggestReport, error) {
	report := &SuggestReport{}
	prompt := fmt.Sprintf(
		"Suggest improvements for this %s code:\n\n```%s\n%s\n```",
		language, language, code)
	if err := a.complete(ctx, prompt, "You are a code improvement expert. Provide detailed, actionable suggestions to improve code quality, performance, and readability.", report); err != nil {
		return nil, err
	}
	return report, nil
}

// GenerateTests produces unit tests for the code.
func (a *Analyzer) GenerateTests(ctx context.Context, language, code string) (*TestReport, error) {
	report := &TestReport{}
	prompt := fmt.Sprintf(
		"Generate unit tests for this %s code:\n\n```%s\n%s\n```",
		language, language, code)
	err := a.complete(ctx, prompt, "You are a testing expert. Generate comprehensive, well-structured unit tests that verify functionality and edge cases.", report)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// complete sends the prompt with the schema of out appended, then
// decodes the reply into out.
func (a *Analyzer) complete(ctx context.Context, prompt, system string, out interface{}) error {
	schemaJSON, err := schemaFor(out)
	if err != nil {
		return fmt.Errorf("failed to build response schema: %w", err)
	}

	full := prompt + "\n\nProvide a JSON response matching this schema:\n" + schemaJSON
	reply, _, err := a.client.Complete(ctx, a.model, system, nil, full)
	if err != nil {
		return err
	}

	if err := decodeJSONReply(reply, out); err != nil {
		a.log.Debug().Err(err).Msg("Analysis reply was not valid JSON")
		return fmt.Errorf("analysis response could not be parsed: %w", err)
	}
	return nil
}

func schemaFor(out interface{}) (string, error) {
	switch out.(type) {
	case *LintReport:
		return schemaJSONFor[LintReport]()
	case *SuggestReport:
		return schemaJSONFor[SuggestReport]()
	case *TestReport:
		return schemaJSONFor[TestReport]()
	}
	return "", fmt.Errorf("unknown report type %T", out)
}

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.+?)\\n```")

// decodeJSONReply unmarshals a model reply that may wrap its JSON in a
// markdown fence.
func decodeJSONReply(reply string, out interface{}) error {
	trimmed := strings.TrimSpace(reply)
	if m := fencedJSONPattern.FindStringSubmatch(trimmed); m != nil {
		trimmed = m[1]
	}
	return json.Unmarshal([]byte(trimmed), out)
}
