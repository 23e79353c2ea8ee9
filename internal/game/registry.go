package game

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mansionnet/quizbot/internal/domain"
)

// Registry owns the channel-to-session map. It guarantees at most one live
// session per channel and removes sessions when they end.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Start launches a new game on the channel, optionally pinned to a category
// or difficulty. Returns ErrGameInProgress when one is already live.
func (r *Registry) Start(channel, category string) error {
	r.mu.Lock()
	if _, live := r.sessions[channel]; live {
		r.mu.Unlock()
		return domain.ErrGameInProgress
	}
	session := NewSession(channel, category, r.deps, r.remove)
	r.sessions[channel] = session
	r.mu.Unlock()

	slog.Info("Game starting", "channel", channel)
	session.Start()
	return nil
}

// Dispatch routes a chat line to the channel's session, if any. Lines for
// channels without a game are ignored.
func (r *Registry) Dispatch(channel, user, text string, _ time.Time) {
	r.mu.Lock()
	session := r.sessions[channel]
	r.mu.Unlock()
	if session == nil {
		return
	}
	session.Answer(user, text)
}

// Running reports whether the channel has a live game.
func (r *Registry) Running(channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, live := r.sessions[channel]
	return live
}

// Stop ends the channel's game early. Returns ErrNoGameRunning when there is
// nothing to stop.
func (r *Registry) Stop(channel, requestedBy string) error {
	r.mu.Lock()
	session := r.sessions[channel]
	r.mu.Unlock()
	if session == nil {
		return domain.ErrNoGameRunning
	}
	session.Stop(requestedBy)
	return nil
}

// StopAll ends every live game. Used during shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Stop("shutdown")
	}
}

// remove is the onFinished hook sessions call from their actor goroutine.
func (r *Registry) remove(channel string) {
	r.mu.Lock()
	delete(r.sessions, channel)
	r.mu.Unlock()
	slog.Info("Game ended", "channel", channel)
}
