package agentcoord

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/contextforge/internal/types"
)

// Coordinator pairs the Registry and Queue with a background dispatch
// loop and a health-monitor loop, run together via golang.org/x/sync/errgroup.
type Coordinator struct {
	Registry *Registry
	Queue    *Queue

	dispatchInterval time.Duration
	healthInterval   time.Duration

	onAssign func(taskID, agentID string, task *types.TaskInfo)
}

// NewCoordinator constructs a Coordinator over registry and queue.
func NewCoordinator(registry *Registry, queue *Queue, healthCheckInterval time.Duration) *Coordinator {
	if healthCheckInterval <= 0 {
		healthCheckInterval = 5 * time.Second
	}
	return &Coordinator{
		Registry:         registry,
		Queue:            queue,
		dispatchInterval: 100 * time.Millisecond,
		healthInterval:   healthCheckInterval,
	}
}

// OnAssign registers a callback invoked synchronously whenever the
// dispatcher assigns a task to an agent (used by the MCP server to push
// the task to the agent's transport).
func (c *Coordinator) OnAssign(fn func(taskID, agentID string, task *types.TaskInfo)) {
	c.onAssign = fn
}

// Run drives the dispatcher and health monitor until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.dispatchLoop(ctx) })
	g.Go(func() error { return c.healthLoop(ctx) })
	return g.Wait()
}

func (c *Coordinator) dispatchLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.dispatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.dispatchOnce()
		}
	}
}

// dispatchOnce assigns as many ready tasks to available agents as
// currently possible.
func (c *Coordinator) dispatchOnce() {
	for {
		agents := c.Registry.List(types.AgentOnline, false)
		var capabilities []string
		seen := map[string]bool{}
		for _, a := range agents {
			for _, cap := range a.Capabilities {
				if !seen[cap] {
					seen[cap] = true
					capabilities = append(capabilities, cap)
				}
			}
		}

		task := c.Queue.GetNextTask(capabilities)
		if task == nil {
			return
		}

		agent := c.Registry.FindAvailableAgent(task.RequiredCapabilities)
		if agent == nil {
			c.Queue.requeue(task.TaskID)
			return
		}

		c.Registry.incrementLoad(agent.AgentID)
		if err := c.Queue.AssignTask(task.TaskID, agent.AgentID); err != nil {
			c.Registry.decrementLoad(agent.AgentID)
			continue
		}
		if c.onAssign != nil {
			assigned, _ := c.Queue.GetResult(task.TaskID)
			c.onAssign(task.TaskID, agent.AgentID, assigned)
		}
	}
}

func (c *Coordinator) healthLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			unhealthy := c.Registry.CheckHealth()
			for _, agentID := range unhealthy {
				c.requeueTasksFor(agentID)
			}
		}
	}
}

// requeueTasksFor returns every task currently assigned to agentID back
// to the pending queue, per spec's heartbeat-timeout requeue rule.
func (c *Coordinator) requeueTasksFor(agentID string) {
	for _, t := range c.Queue.ListTasks(types.TaskRunning, true) {
		if t.AssignedAgent == agentID {
			c.Queue.requeue(t.TaskID)
			c.Registry.decrementLoad(agentID)
		}
	}
}
