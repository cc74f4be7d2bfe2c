package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ScriptedCaller replays a fixed sequence of responses, one per call.
// A step with a non-nil Err fails that call. Calls beyond the script fail.
type ScriptedCaller struct {
	mu       sync.Mutex
	steps    []Step
	calls    int
	requests []Request
}

// Step is one scripted outcome.
type Step struct {
	Text string
	Err  error
}

func NewScriptedCaller(steps ...Step) *ScriptedCaller {
	return &ScriptedCaller{steps: steps}
}

func (s *ScriptedCaller) Complete(_ context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.calls >= len(s.steps) {
		s.calls++
		return "", fmt.Errorf("scripted caller exhausted after %d calls", len(s.steps))
	}
	st := s.steps[s.calls]
	s.calls++
	return st.Text, st.Err
}

// Calls reports how many times Complete was invoked.
func (s *ScriptedCaller) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Requests returns a copy of the recorded requests.
func (s *ScriptedCaller) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// EchoCaller derives its response purely from the request, so concurrent and
// sequential runs over the same prompts produce identical output.
type EchoCaller struct {
	// Respond overrides the default component renderer.
	Respond func(req Request) string
}

func (e EchoCaller) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.Respond != nil {
		return e.Respond(req), nil
	}
	return EchoComponent(req.Prompt), nil
}

// EchoComponent renders a minimal client component named after the prompt's
// trailing "Component name:" line.
func EchoComponent(prompt string) string {
	name := ComponentNameFromPrompt(prompt)
	return fmt.Sprintf("\"use client\";\n\nimport { motion } from \"framer-motion\";\n\nexport default function %s() {\n  return (\n    <motion.section className=\"py-24\">\n      <h2>%s</h2>\n    </motion.section>\n  );\n}\n", name, name)
}

// ComponentNameFromPrompt extracts the identifier from the "Component name: X" line.
func ComponentNameFromPrompt(prompt string) string {
	const marker = "Component name:"
	idx := strings.LastIndex(prompt, marker)
	if idx < 0 {
		return "Section"
	}
	rest := strings.TrimSpace(prompt[idx+len(marker):])
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(rest)
}
