package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/lustra-ai/lustra/pkg/logger"
)

// EventType describes a session change.
type EventType string

const (
	EventSignedIn    EventType = "signed_in"
	EventSignedOut   EventType = "signed_out"
	EventUserUpdated EventType = "user_updated"
)

// Event is published to session subscribers on every change.
type Event struct {
	Type EventType
	User *User
}

// Session is an explicit, injected auth session. API-calling code takes a
// *Session instead of reading ambient global state; interested parties get
// change notifications over the Subscribe channel.
type Session struct {
	client *Client

	mu      sync.RWMutex
	token   string
	user    *User
	subs    map[int]chan Event
	nextSub int
}

func NewSession(client *Client) *Session {
	return &Session{
		client: client,
		subs:   make(map[int]chan Event),
	}
}

// Token returns the current bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the last known user record, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// SetToken installs a new bearer token and resets the cached user.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.user = nil
	s.mu.Unlock()
	s.publish(Event{Type: EventSignedIn})
}

// Clear signs the session out.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	s.publish(Event{Type: EventSignedOut})
}

// Subscribe registers for session change events. The returned function
// unsubscribes; events are dropped rather than blocking a slow consumer.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 8)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

func (s *Session) publish(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Session) setUser(user *User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	s.publish(Event{Type: EventUserUpdated, User: user})
}

// Validate fetches the user record and CLEARS the session on 401. This is
// the strict policy for login-gated call sites.
func (s *Session) Validate(ctx context.Context) (*User, error) {
	user, err := s.client.Me(ctx, s.Token())
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			logger.FromContext(ctx).Debug("token rejected, clearing session")
			s.Clear()
		}
		return nil, err
	}
	s.setUser(user)
	return user, nil
}

// Refresh fetches the user record but PRESERVES the session on 401 and on
// transient errors. Poll-adjacent call sites use this so a blip during a
// long generation never logs the user out. The split policy with Validate
// is deliberate and matches documented behavior; do not unify.
func (s *Session) Refresh(ctx context.Context) (*User, error) {
	user, err := s.client.Me(ctx, s.Token())
	if err != nil {
		logger.FromContext(ctx).Debug("session refresh failed, keeping session", "error", err)
		return s.User(), err
	}
	s.setUser(user)
	return user, nil
}
