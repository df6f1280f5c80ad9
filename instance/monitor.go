package instance

import (
	"sync"
	"time"

	"github.com/wokengine/wok/metrics"
	"github.com/wokengine/wok/node"
)

// Monitor periodically snapshots an instance's module/task counts into
// Prometheus gauges. It only observes and never mutates instance
// state, since re-planning after a task failure is out of scope here.
type Monitor struct {
	inst     *Instance
	interval time.Duration

	mu     sync.Mutex
	stopCh chan struct{}
}

// NewMonitor returns a snapshot loop for inst, ticking every interval.
func NewMonitor(inst *Instance, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{inst: inst, interval: interval}
}

func (mon *Monitor) Start() {
	mon.mu.Lock()
	if mon.stopCh != nil {
		mon.mu.Unlock()
		return
	}
	mon.stopCh = make(chan struct{})
	mon.mu.Unlock()

	go mon.run()
}

func (mon *Monitor) Stop() {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	if mon.stopCh != nil {
		close(mon.stopCh)
		mon.stopCh = nil
	}
}

func (mon *Monitor) run() {
	ticker := time.NewTicker(mon.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mon.snapshot()
		case <-mon.stopCh:
			return
		}
	}
}

func (mon *Monitor) snapshot() {
	mon.inst.mu.Lock()
	defer mon.inst.mu.Unlock()

	metrics.InstanceState.Set(float64(mon.inst.state))
	if mon.inst.root == nil {
		return
	}

	counts := map[string]map[node.State]int{"flow": {}, "leaf": {}}
	var walk func(m node.Module)
	walk = func(m node.Module) {
		kind := "leaf"
		if f, ok := m.(*node.FlowNode); ok {
			kind = "flow"
			for _, child := range f.Modules {
				walk(child)
			}
		}
		counts[kind][m.State()]++
	}
	walk(mon.inst.root)

	for kind, byState := range counts {
		for st, n := range byState {
			metrics.ModulesTotal.WithLabelValues(kind, st.String()).Set(float64(n))
		}
	}
}
