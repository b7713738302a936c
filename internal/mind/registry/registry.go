// Package registry owns the per-agent mental-state lifecycle for a fleet of
// agents sharing one model. Model weights are immutable and shared; each
// agent's update stream is serialized behind its own lock, so independent
// agents update in parallel without ever interleaving updates to the same
// agent.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"mentalworld.ai/internal/mind/feature"
	"mentalworld.ai/internal/mind/model"
	"mentalworld.ai/internal/mind/vecmath"
)

var ErrUnknownAgent = errors.New("unknown agent")

type Registry struct {
	model *model.Model

	mu        sync.RWMutex // guards agents map and counter, never held during inference
	agents    map[string]*entry
	nextAgent uint64
}

type entry struct {
	mu    sync.Mutex // serializes this agent's update stream
	name  string
	state *model.State
}

func New(m *model.Model) *Registry {
	return &Registry{
		model:  m,
		agents: map[string]*entry{},
	}
}

func (r *Registry) Model() *model.Model { return r.model }

// Join registers a new agent with a zero-initialized state and returns its
// assigned ID.
func (r *Registry) Join(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextAgent++
	id := fmt.Sprintf("A%d", r.nextAgent)
	r.agents[id] = &entry{
		name:  name,
		state: model.NewState(r.model.Cfg.LatentDim),
	}
	return id
}

func (r *Registry) Leave(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, id)
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	return e, nil
}

// Update advances one agent by one perception tick. The agent's committed
// state is replaced only after the model returns a fully formed new state;
// a failed update leaves the old state visible.
func (r *Registry) Update(id string, tac feature.TacticalFeatures, visual vecmath.Vector, self feature.SelfState, action *feature.ActionDescriptor) (*model.State, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := r.model.Update(e.state, tac, visual, self, action)
	if err != nil {
		return nil, err
	}
	e.state = next
	return next, nil
}

// State returns the agent's current committed state.
func (r *Registry) State(id string) (*model.State, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, nil
}

// Rollout previews an action sequence from the agent's current latent
// without committing anything.
func (r *Registry) Rollout(id string, actions []feature.ActionDescriptor) ([]*model.Preview, error) {
	st, err := r.State(id)
	if err != nil {
		return nil, err
	}
	return r.model.Rollout(st.Latent, actions)
}

// AgentIDs returns the registered IDs in stable order.
func (r *Registry) AgentIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Export captures every agent's committed state for persistence. Previews
// are transient and dropped.
func (r *Registry) Export() (states map[string]*model.State, names map[string]string, nextAgent uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	states = make(map[string]*model.State, len(r.agents))
	names = make(map[string]string, len(r.agents))
	for id, e := range r.agents {
		e.mu.Lock()
		st := *e.state
		st.Preview = nil
		st.Latent = e.state.Latent.Clone()
		e.mu.Unlock()
		states[id] = &st
		names[id] = e.name
	}
	return states, names, r.nextAgent
}

// Restore replaces the registry contents with persisted states. States whose
// latent width does not match the loaded model are rejected wholesale.
func (r *Registry) Restore(states map[string]*model.State, names map[string]string, nextAgent uint64) error {
	want := r.model.Cfg.LatentDim
	for id, st := range states {
		if len(st.Latent) != want {
			return fmt.Errorf("agent %s: latent width %d does not match model width %d", id, len(st.Latent), want)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]*entry, len(states))
	for id, st := range states {
		r.agents[id] = &entry{name: names[id], state: st}
	}
	r.nextAgent = nextAgent
	return nil
}
