// Package rewrite expands a natural-language question into a retrieval query
// that mentions the vocabulary the corpus is likely indexed under. It is a
// thin layer over the text-generation capability and is deliberately
// best-effort: every failure path returns the original question.
package rewrite

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
)

// DefaultMaxOutputChars bounds the rewritten query. Anything longer is a sign
// the model rambled, and long retrieval queries drown the original intent.
const DefaultMaxOutputChars = 512

const promptTemplate = `You rewrite questions about a data warehouse into search queries.
Expand the question below with synonyms and likely SQL vocabulary such as
table or column names. Answer with the expanded query on a single line and
nothing else.

%s

Question: %s
Expanded query:`

// Rewriter expands questions before retrieval.
type Rewriter struct {
	generator llm.Generator
	maxChars  int
	logger    *zap.Logger
}

// NewRewriter builds a Rewriter. maxChars <= 0 selects DefaultMaxOutputChars.
func NewRewriter(generator llm.Generator, maxChars int, logger *zap.Logger) *Rewriter {
	if maxChars <= 0 {
		maxChars = DefaultMaxOutputChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rewriter{generator: generator, maxChars: maxChars, logger: logger}
}

// Rewrite returns an expanded retrieval query for question. conversation may
// carry prior turns for follow-up questions and may be empty.
//
// Rewrite never fails: on any generator error, empty output, or output that
// no longer contains a usable query, it returns question unchanged.
func (r *Rewriter) Rewrite(ctx context.Context, question string, conversation []string) string {
	question = strings.TrimSpace(question)
	if question == "" || r.generator == nil {
		return question
	}

	out, err := r.generator.Generate(ctx, r.buildPrompt(question, conversation))
	if err != nil {
		r.logger.Warn("query rewrite failed, using original question", zap.Error(err))
		return question
	}

	rewritten := sanitize(out)
	if rewritten == "" {
		r.logger.Warn("query rewrite produced no usable output, using original question")
		return question
	}
	if len(rewritten) > r.maxChars {
		rewritten = truncateAtSpace(rewritten, r.maxChars)
	}
	r.logger.Debug("query rewritten",
		zap.String("question", question),
		zap.String("rewritten", rewritten))
	return rewritten
}

func (r *Rewriter) buildPrompt(question string, conversation []string) string {
	var history string
	if len(conversation) > 0 {
		var b strings.Builder
		b.WriteString("Conversation so far:\n")
		for _, turn := range conversation {
			turn = strings.TrimSpace(turn)
			if turn == "" {
				continue
			}
			b.WriteString("- ")
			b.WriteString(turn)
			b.WriteString("\n")
		}
		history = b.String()
	}
	return fmt.Sprintf(promptTemplate, history, question)
}

// sanitize collapses the model output to a single line and strips chat
// artifacts such as quotes and label prefixes.
func sanitize(out string) string {
	out = strings.TrimSpace(out)
	if idx := strings.IndexByte(out, '\n'); idx >= 0 {
		out = out[:idx]
	}
	out = strings.Trim(out, "\"'` ")
	lower := strings.ToLower(out)
	for _, prefix := range []string{"expanded query:", "query:", "answer:"} {
		if strings.HasPrefix(lower, prefix) {
			out = strings.TrimSpace(out[len(prefix):])
			break
		}
	}
	return strings.TrimSpace(out)
}

// truncateAtSpace cuts s to at most n bytes, preferring a word boundary so the
// keyword tokenizer does not index a severed fragment. When no usable space
// exists the cut lands on a rune boundary, never inside a multi-byte rune.
func truncateAtSpace(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if idx := strings.LastIndexByte(cut, ' '); idx > n/2 {
		cut = cut[:idx]
	} else {
		for len(cut) > 0 {
			r, size := utf8.DecodeLastRuneInString(cut)
			if r != utf8.RuneError || size != 1 {
				break
			}
			cut = cut[:len(cut)-1]
		}
	}
	return strings.TrimSpace(cut)
}
