package llm

import "context"

// MockGenerator is a scripted Generator for tests. Responses are returned in
// order; when exhausted, the last response repeats. A non-nil Err is returned
// for every call instead.
type MockGenerator struct {
	Responses []string
	Err       error
	Prompts   []string
	calls     int
}

// Generate records the prompt and returns the next scripted response.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	i := m.calls
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	m.calls++
	return m.Responses[i], nil
}
