// Package agentcoord implements C12: the Remote-Agent Coordinator. A
// Registry of remote agents and a priority task queue, dispatched by a
// background loop pairing ready tasks with capable, least-loaded agents
// and monitoring heartbeats for health, grounded on spec §4.12/§5 (no
// direct teacher equivalent) and
// _examples/original_source/tests/test_remote_agent.py's behavioral
// contract (AgentRegistry registration/heartbeat/find_available_agent
// load balancing, TaskQueue submit/assign/complete). The mutex-guarded
// map-with-clone-snapshot discipline follows internal/process (C6) and
// internal/tasklist (C11).
package agentcoord

import (
	"sync"
	"time"

	edlib "github.com/hbollon/go-edlib"

	cferrors "github.com/standardbeagle/contextforge/internal/errors"
	"github.com/standardbeagle/contextforge/internal/types"
)

const (
	defaultMaxConcurrentTasks = 5
	defaultHeartbeatTimeout   = 30 * time.Second
	defaultFuzzyCapThreshold  = 0.85
)

// Registry tracks remote agents and their health.
type Registry struct {
	mu               sync.Mutex
	agents           map[string]*types.AgentInfo
	heartbeatTimeout time.Duration

	// fuzzyCapabilities, off by default, lets FindByCapability and
	// FindAvailableAgent match a typo'd or near-miss capability name
	// (e.g. "gpu-infer" against a registered "gpu-inference") instead of
	// requiring an exact string. Grounded on
	// _examples/standardbeagle-lci/internal/semantic/fuzzy_matcher.go's
	// Jaro-Winkler similarity scoring.
	fuzzyCapabilities bool
	fuzzyThreshold    float64
}

// NewRegistry constructs an empty Registry.
func NewRegistry(heartbeatTimeout time.Duration) *Registry {
	if heartbeatTimeout <= 0 {
		heartbeatTimeout = defaultHeartbeatTimeout
	}
	return &Registry{
		agents:           make(map[string]*types.AgentInfo),
		heartbeatTimeout: heartbeatTimeout,
		fuzzyThreshold:   defaultFuzzyCapThreshold,
	}
}

// SetFuzzyCapabilityMatching enables or disables approximate capability
// matching (Jaro-Winkler similarity ≥ threshold counts as a match). Disabled
// by default; threshold <= 0 resets to the default 0.85.
func (r *Registry) SetFuzzyCapabilityMatching(enabled bool, threshold float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fuzzyCapabilities = enabled
	if threshold > 0 {
		r.fuzzyThreshold = threshold
	} else {
		r.fuzzyThreshold = defaultFuzzyCapThreshold
	}
}

// capabilityMatches reports whether have satisfies want, exactly or (if
// fuzzy matching is enabled) within the configured similarity threshold.
func (r *Registry) capabilityMatches(have, want string) bool {
	if have == want {
		return true
	}
	if !r.fuzzyCapabilities {
		return false
	}
	score, err := edlib.StringsSimilarity(have, want, edlib.JaroWinkler)
	if err != nil {
		return false
	}
	return float64(score) >= r.fuzzyThreshold
}

// Register adds or replaces an agent entry.
func (r *Registry) Register(agentID, name string, capabilities []string, maxConcurrent int, endpoint string) (*types.AgentInfo, error) {
	if agentID == "" {
		return nil, cferrors.New(cferrors.ValidationError, "agent_id must not be empty")
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentTasks
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	info := &types.AgentInfo{
		AgentID:       agentID,
		Name:          name,
		Capabilities:  append([]string(nil), capabilities...),
		Status:        types.AgentOnline,
		MaxConcurrent: maxConcurrent,
		LastHeartbeat: time.Now(),
		Endpoint:      endpoint,
		Metadata:      map[string]any{},
	}
	r.agents[agentID] = info
	return cloneAgent(info), nil
}

// Deregister removes an agent from the registry.
func (r *Registry) Deregister(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[agentID]; !ok {
		return cferrors.New(cferrors.NotFound, "agent %q not found", agentID)
	}
	delete(r.agents, agentID)
	return nil
}

// Get returns a clone of the agent with the given id.
func (r *Registry) Get(agentID string) (*types.AgentInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return nil, cferrors.New(cferrors.NotFound, "agent %q not found", agentID)
	}
	return cloneAgent(a), nil
}

// List returns clones of every registered agent, optionally filtered by status.
func (r *Registry) List(status types.AgentStatus, filterByStatus bool) []*types.AgentInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.AgentInfo, 0, len(r.agents))
	for _, a := range r.agents {
		if filterByStatus && a.Status != status {
			continue
		}
		out = append(out, cloneAgent(a))
	}
	return out
}

// FindByCapability returns agents advertising capability.
func (r *Registry) FindByCapability(capability string) []*types.AgentInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.AgentInfo
	for _, a := range r.agents {
		for _, c := range a.Capabilities {
			if r.capabilityMatches(c, capability) {
				out = append(out, cloneAgent(a))
				break
			}
		}
	}
	return out
}

// FindAvailableAgent returns the least-loaded ONLINE agent advertising
// every capability in required, or nil if none qualify.
func (r *Registry) FindAvailableAgent(required []string) *types.AgentInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *types.AgentInfo
	for _, a := range r.agents {
		if a.Status != types.AgentOnline && a.Status != types.AgentBusy {
			continue
		}
		if a.CurrentTasks >= a.MaxConcurrent {
			continue
		}
		if !r.hasAllCapabilities(a.Capabilities, required) {
			continue
		}
		if best == nil || a.CurrentTasks < best.CurrentTasks {
			best = a
		}
	}
	if best == nil {
		return nil
	}
	return cloneAgent(best)
}

// hasAllCapabilities reports whether have satisfies every entry in want,
// using r's configured exact/fuzzy capability matching. Caller holds r.mu.
func (r *Registry) hasAllCapabilities(have, want []string) bool {
	for _, w := range want {
		matched := false
		for _, c := range have {
			if r.capabilityMatches(c, w) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Heartbeat refreshes an agent's last-seen time and, if it was
// UNHEALTHY, restores it to ONLINE.
func (r *Registry) Heartbeat(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return cferrors.New(cferrors.NotFound, "agent %q not found", agentID)
	}
	a.LastHeartbeat = time.Now()
	if a.Status == types.AgentUnhealthy {
		a.Status = types.AgentOnline
	}
	return nil
}

// CheckHealth marks every agent whose heartbeat has exceeded the
// configured timeout as UNHEALTHY, returning the ids affected.
func (r *Registry) CheckHealth() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected []string
	cutoff := time.Now().Add(-r.heartbeatTimeout)
	for id, a := range r.agents {
		if a.Status == types.AgentOffline {
			continue
		}
		if a.LastHeartbeat.Before(cutoff) && a.Status != types.AgentUnhealthy {
			a.Status = types.AgentUnhealthy
			affected = append(affected, id)
		}
	}
	return affected
}

// Stats summarizes registry composition.
type Stats struct {
	Total     int
	Online    int
	Busy      int
	Unhealthy int
	Offline   int
}

// GetStats returns aggregate counts by status.
func (r *Registry) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s Stats
	s.Total = len(r.agents)
	for _, a := range r.agents {
		switch a.Status {
		case types.AgentOnline:
			s.Online++
		case types.AgentBusy:
			s.Busy++
		case types.AgentUnhealthy:
			s.Unhealthy++
		case types.AgentOffline:
			s.Offline++
		}
	}
	return s
}

// incrementLoad and decrementLoad are used by the dispatcher when
// assigning/completing tasks against a specific agent.
func (r *Registry) incrementLoad(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[agentID]; ok {
		a.CurrentTasks++
		if a.CurrentTasks >= a.MaxConcurrent {
			a.Status = types.AgentBusy
		}
	}
}

func (r *Registry) decrementLoad(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[agentID]; ok {
		if a.CurrentTasks > 0 {
			a.CurrentTasks--
		}
		if a.Status == types.AgentBusy && a.CurrentTasks < a.MaxConcurrent {
			a.Status = types.AgentOnline
		}
	}
}

func cloneAgent(a *types.AgentInfo) *types.AgentInfo {
	c := *a
	c.Capabilities = append([]string(nil), a.Capabilities...)
	c.Metadata = make(map[string]any, len(a.Metadata))
	for k, v := range a.Metadata {
		c.Metadata[k] = v
	}
	return &c
}
