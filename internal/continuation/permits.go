package continuation

import (
	"errors"
	"sync"
)

// ErrConversationBusy is returned when a conversation's resumption permit is
// already held. Callers fail fast rather than queueing.
var ErrConversationBusy = errors.New("conversation is busy")

// permits hands out one resumption permit per conversation id, so two
// continuation callbacks never push activities into the same user
// conversation at once.
type permits struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newPermits() *permits {
	return &permits{held: make(map[string]struct{})}
}

// acquire takes the permit for a conversation. It returns a release func on
// success and ErrConversationBusy if the permit is already held.
func (p *permits) acquire(conversationID string) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, busy := p.held[conversationID]; busy {
		return nil, ErrConversationBusy
	}
	p.held[conversationID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.held, conversationID)
		})
	}
	return release, nil
}
