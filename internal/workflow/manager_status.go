package workflow

import "time"

// TaskStatus describes one supervised task.
type TaskStatus struct {
	Name      string
	Thread    string
	Running   bool
	Restarts  int
	LastError string
	LastStart time.Time
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running bool
	Tasks   []TaskStatus
}

// Status returns the latest task information in registration order.
func (m *Manager) Status() StatusSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	summary := StatusSummary{Running: m.running, Tasks: make([]TaskStatus, 0, len(m.tasks))}
	for _, state := range m.tasks {
		status := TaskStatus{
			Name:      state.task.Name,
			Thread:    state.task.Thread,
			Running:   state.running,
			Restarts:  state.restarts,
			LastStart: state.lastStart,
		}
		if state.lastErr != nil {
			status.LastError = state.lastErr.Error()
		}
		summary.Tasks = append(summary.Tasks, status)
	}
	return summary
}
