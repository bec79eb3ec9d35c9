// Package pipeline wires retrieval, packing, generation and validation into
// the question-answering flow, and owns the caller-driven fix rounds.
package pipeline

import (
	"fmt"
	"strings"
)

// AskMode selects what the assistant does with a question. The set is closed;
// dispatch goes through the Assistant's handler table, never through string
// matching at call sites.
type AskMode int

const (
	// ModeGenerate produces SQL for the question. The default.
	ModeGenerate AskMode = iota
	// ModeExplain explains what a query or question is asking for, without
	// generating new SQL.
	ModeExplain
	// ModeFix treats the question body as SQL to validate and repair.
	ModeFix
)

func (m AskMode) String() string {
	switch m {
	case ModeGenerate:
		return "generate"
	case ModeExplain:
		return "explain"
	case ModeFix:
		return "fix"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var modeNames = map[string]AskMode{
	"generate": ModeGenerate,
	"create":   ModeGenerate, // legacy spelling
	"explain":  ModeExplain,
	"fix":      ModeFix,
}

// ParseMode splits an optional leading @mode token off a question and returns
// the mode plus the remaining text. A question without a prefix is
// ModeGenerate. An @token that is not a known mode is an error rather than
// silently becoming part of the question.
func ParseMode(question string) (AskMode, string, error) {
	question = strings.TrimSpace(question)
	if !strings.HasPrefix(question, "@") {
		return ModeGenerate, question, nil
	}
	name, rest, _ := strings.Cut(question, " ")
	mode, ok := modeNames[strings.ToLower(strings.TrimPrefix(name, "@"))]
	if !ok {
		return ModeGenerate, "", fmt.Errorf("unknown mode %q", name)
	}
	return mode, strings.TrimSpace(rest), nil
}
