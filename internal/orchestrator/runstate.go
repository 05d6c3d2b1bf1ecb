package orchestrator

import "sync"

// RunState holds the global running flag and the per-strategy enable
// flags. Only the orchestrator mutates it, on behalf of the operator
// command channel; strategy loops read it once per iteration.
type RunState struct {
	mu      sync.RWMutex
	running bool
	enabled map[string]bool
}

// NewRunState starts running with every listed strategy enabled.
func NewRunState(strategies ...string) *RunState {
	enabled := make(map[string]bool, len(strategies))
	for _, s := range strategies {
		enabled[s] = true
	}
	return &RunState{running: true, enabled: enabled}
}

// Running reports the global run flag.
func (r *RunState) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// StrategyEnabled reports whether one strategy may evaluate.
func (r *RunState) StrategyEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[name]
}

func (r *RunState) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
}

func (r *RunState) setEnabled(name string, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled[name] = on
}
