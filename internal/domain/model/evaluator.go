// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEvaluator is returned when an evaluator name is not one of Evaluators.
var ErrUnknownEvaluator = errors.New("unknown evaluator")

// Evaluator identifies the AI model that produced an evaluation.
type Evaluator string

// Known evaluators.
const (
	EvaluatorClaude     Evaluator = "claude"
	EvaluatorChatGPT    Evaluator = "chatgpt"
	EvaluatorGemini     Evaluator = "gemini"
	EvaluatorGrok       Evaluator = "grok"
	EvaluatorPerplexity Evaluator = "perplexity"
)

// Evaluators lists every known evaluator in a fixed order. Snapshot columns
// and summary breakdowns follow this order.
var Evaluators = []Evaluator{ //nolint:gochecknoglobals // fixed enumeration
	EvaluatorClaude,
	EvaluatorChatGPT,
	EvaluatorGemini,
	EvaluatorGrok,
	EvaluatorPerplexity,
}

// Valid reports whether e is a known evaluator.
func (e Evaluator) Valid() bool {
	for _, k := range Evaluators {
		if e == k {
			return true
		}
	}
	return false
}

// ParseEvaluator normalizes and validates an evaluator name.
func ParseEvaluator(s string) (Evaluator, error) {
	e := Evaluator(strings.ToLower(strings.TrimSpace(s)))
	if !e.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvaluator, s)
	}
	return e, nil
}
