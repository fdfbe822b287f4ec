// Package feed polls a social search endpoint for posts carrying the game
// hashtag and turns their authors' avatars into pickup textures.
package feed

import (
	"image"
	"sync"
)

// Post is the text shown when the matching avatar is collected.
type Post struct {
	Author string // "@screen_name"
	Text   string
}

// Avatar is a decoded, resized author picture. Key doubles as the texture
// path so a collected pickup can be matched back to its Post.
type Avatar struct {
	Key   string
	Image *image.RGBA
}

// Store is the state shared between the fetch goroutines and the scene.
type Store struct {
	mu      sync.RWMutex
	posts   map[string]Post
	known   map[string]struct{}
	pending []Avatar
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		posts: make(map[string]Post),
		known: make(map[string]struct{}),
	}
}

// Post returns the post recorded under key.
func (s *Store) Post(key string) (Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[key]
	return p, ok
}

// PutPost records or replaces the post for key.
func (s *Store) PutPost(key string, p Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[key] = p
}

// HasAvatar reports whether an avatar for key was ever added.
func (s *Store) HasAvatar(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.known[key]
	return ok
}

// AddAvatar queues a for upload. It returns false, and drops a, when an
// avatar with the same key was already added.
func (s *Store) AddAvatar(a Avatar) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.known[a.Key]; ok {
		return false
	}
	s.known[a.Key] = struct{}{}
	s.pending = append(s.pending, a)
	return true
}

// TakeAvatars returns the avatars added since the previous call.
func (s *Store) TakeAvatars() []Avatar {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// AvatarCount returns how many distinct avatars have been added.
func (s *Store) AvatarCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.known)
}

// Offline serves a store without ever polling.
type Offline struct {
	*Store
}

// SearchPosts does nothing.
func (Offline) SearchPosts(string) {}
