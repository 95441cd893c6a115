package app

import "trivia-bot/internal/domain"

// ReleaseForTest exposes the manager's release hook.
func (m *Manager) ReleaseForTest(s *Session, out domain.Outcome) {
	m.release(s, out)
}
