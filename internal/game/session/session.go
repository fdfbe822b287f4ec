// Package session holds the per-run view state shown by the HUD and lets
// observers subscribe to its changes.
package session

import (
	"fmt"
	"math"
	"slices"
	"sync"
)

// DefaultHashtag is the tag polled when none is configured.
const DefaultHashtag = "hackw8"

// DefaultUser is shown as the post author before any post is collected.
const DefaultUser = "@you"

// Field identifies which part of the state a Change concerns.
type Field int

const (
	FieldMiles Field = iota
	FieldFollowers
	FieldHashtag
	FieldPost
	FieldReset
)

func (f Field) String() string {
	switch f {
	case FieldMiles:
		return "miles"
	case FieldFollowers:
		return "followers"
	case FieldHashtag:
		return "hashtag"
	case FieldPost:
		return "post"
	case FieldReset:
		return "reset"
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// State is a copy of the session values.
type State struct {
	Miles      float64
	Followers  int
	Hashtag    string
	PostText   string
	PostAuthor string
	Scores     []string
}

// Change is delivered to subscribers after every mutation.
type Change struct {
	Field Field
	State State
}

type subscriber struct {
	id int
	fn func(Change)
}

// Session is safe for concurrent use. Subscribers are called synchronously
// on the mutating goroutine, after the lock is released.
type Session struct {
	mu     sync.RWMutex
	state  State
	subs   []subscriber
	nextID int
}

// New creates a session with the default hashtag, invitation post and
// score table.
func New() *Session {
	s := &Session{}
	s.state = State{
		Hashtag:    DefaultHashtag,
		PostAuthor: DefaultUser,
		PostText:   invitation(DefaultHashtag),
		Scores:     defaultScores(),
	}
	return s
}

func invitation(tag string) string {
	return fmt.Sprintf("Post with #%s to show up here!", tag)
}

func defaultScores() []string {
	names := []string{
		"Ada", "Grace", "Linus", "Ken", "Rob",
		"Barbara", "Dennis", "Margaret", "Edsger", "Alan",
	}
	scores := make([]string, len(names))
	for i, n := range names {
		scores[i] = fmt.Sprintf("%d. %s", i+1, n)
	}
	return scores
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	st := s.state
	st.Scores = slices.Clone(s.state.Scores)
	return st
}

// Hashtag returns the tag being polled, without the leading '#'.
func (s *Session) Hashtag() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Hashtag
}

// Subscribe registers fn for every subsequent change. The returned function
// removes the subscription.
func (s *Session) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
	}
}

func (s *Session) update(field Field, mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	change := Change{Field: field, State: s.snapshotLocked()}
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(change)
	}
}

// Reset zeroes the run counters.
func (s *Session) Reset() {
	s.update(FieldReset, func(st *State) {
		st.Miles = 0
		st.Followers = 0
	})
}

// AddMiles adds distance rounded to two decimals.
func (s *Session) AddMiles(d float64) {
	s.update(FieldMiles, func(st *State) {
		st.Miles += math.Round(d*100) / 100
	})
}

// AddFollower counts one collected pickup.
func (s *Session) AddFollower() {
	s.update(FieldFollowers, func(st *State) {
		st.Followers++
	})
}

// SetPost shows a collected post.
func (s *Session) SetPost(author, text string) {
	s.update(FieldPost, func(st *State) {
		st.PostAuthor = author
		st.PostText = text
	})
}

// SetHashtag changes the polled tag. A leading '#' is dropped. The
// invitation text follows the tag until a real post is shown.
func (s *Session) SetHashtag(tag string) {
	if len(tag) > 0 && tag[0] == '#' {
		tag = tag[1:]
	}
	s.update(FieldHashtag, func(st *State) {
		if st.PostAuthor == DefaultUser && st.PostText == invitation(st.Hashtag) {
			st.PostText = invitation(tag)
		}
		st.Hashtag = tag
	})
}
