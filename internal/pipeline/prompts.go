package pipeline

import (
	"fmt"
	"strings"
)

const generatePrompt = `You are a SQL assistant for a data warehouse. Using only the
tables shown below, write one SQL query answering the question. Reply with the
SQL only, no prose.

%s
Question: %s
SQL:`

const explainPrompt = `You are a SQL assistant for a data warehouse. Using the
context below, explain in plain language what data answers the question and
which tables and columns are involved. Do not write SQL.

%s
Question: %s
Explanation:`

const fixPrompt = `You are a SQL assistant for a data warehouse. The query below
failed validation. Rewrite it so it passes, changing as little as possible.
Reply with the corrected SQL only, no prose.

%s
Query:
%s

Validation errors:
%s

Corrected SQL:`

func buildGeneratePrompt(context, question string) string {
	return fmt.Sprintf(generatePrompt, section(context), question)
}

func buildExplainPrompt(context, question string) string {
	return fmt.Sprintf(explainPrompt, section(context), question)
}

func buildFixPrompt(context, sql string, errors []string) string {
	var b strings.Builder
	for _, e := range errors {
		b.WriteString("- ")
		b.WriteString(e)
		b.WriteString("\n")
	}
	return fmt.Sprintf(fixPrompt, section(context), strings.TrimSpace(sql), b.String())
}

func section(context string) string {
	context = strings.TrimSpace(context)
	if context == "" {
		return ""
	}
	return context + "\n"
}

// extractSQL strips markdown fences and label lines that chat models wrap
// around generated queries.
func extractSQL(out string) string {
	out = strings.TrimSpace(out)
	if strings.HasPrefix(out, "```") {
		if idx := strings.IndexByte(out, '\n'); idx >= 0 {
			out = out[idx+1:]
		} else {
			out = strings.TrimPrefix(out, "```")
		}
		if idx := strings.Index(out, "```"); idx >= 0 {
			out = out[:idx]
		}
	}
	out = strings.TrimSpace(out)
	for _, prefix := range []string{"sql:", "query:"} {
		if strings.HasPrefix(strings.ToLower(out), prefix) {
			out = strings.TrimSpace(out[len(prefix):])
		}
	}
	return out
}
