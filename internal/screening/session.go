package screening

import "sync"

// Session keeps the latest completed run for the presentation layer.
type Session struct {
	mu     sync.RWMutex
	latest *Result
}

func NewSession() *Session {
	return &Session{}
}

// Latest returns the most recent result, or nil before the first run completes.
func (s *Session) Latest() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Replace swaps in a completed result. A nil result is ignored.
func (s *Session) Replace(result *Result) {
	if result == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = result
}
