package fakes

import (
	"context"
	"fmt"
	"sync"

	"github.com/systmms/relsetup/internal/prompt"
)

// ScriptedRenderer answers prompts from a per-question script.
type ScriptedRenderer struct {
	mu      sync.Mutex
	answers map[string][]string
	Asked   []prompt.Field
}

// NewScriptedRenderer creates a renderer with no scripted answers.
func NewScriptedRenderer() *ScriptedRenderer {
	return &ScriptedRenderer{answers: make(map[string][]string)}
}

// Answer queues values for the question named name, consumed in order.
func (r *ScriptedRenderer) Answer(name string, values ...string) *ScriptedRenderer {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers[name] = append(r.answers[name], values...)
	return r
}

// Render implements prompt.Renderer.
func (r *ScriptedRenderer) Render(_ context.Context, f prompt.Field) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Asked = append(r.Asked, f)

	queue := r.answers[f.Name]
	if len(queue) == 0 {
		return "", fmt.Errorf("unexpected prompt %q (%s)", f.Name, f.Message)
	}
	r.answers[f.Name] = queue[1:]
	return queue[0], nil
}

// Names returns the asked question names in order.
func (r *ScriptedRenderer) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.Asked))
	for _, f := range r.Asked {
		names = append(names, f.Name)
	}
	return names
}

// Count returns how many times name was asked.
func (r *ScriptedRenderer) Count(name string) int {
	n := 0
	for _, asked := range r.Names() {
		if asked == name {
			n++
		}
	}
	return n
}
