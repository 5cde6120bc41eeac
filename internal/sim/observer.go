package sim

import "fuelsensor-sim/internal/telemetry"

const maxHistory = 100

// History returns a copy of the most recent supervisor transitions, oldest first.
func (s *Simulator) History() []telemetry.StateRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]telemetry.StateRow, len(s.history))
	copy(out, s.history)
	return out
}

// logTransition must be called with s.mu held.
func (s *Simulator) logTransition(row telemetry.StateRow) {
	s.history = append(s.history, row)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
}
