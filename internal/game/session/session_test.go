package session

import (
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	s := New()
	st := s.Snapshot()

	if st.Hashtag != "hackw8" {
		t.Errorf("hashtag = %q, want hackw8", st.Hashtag)
	}
	if st.PostAuthor != "@you" {
		t.Errorf("author = %q, want @you", st.PostAuthor)
	}
	if !strings.Contains(st.PostText, "#hackw8") {
		t.Errorf("invitation %q does not mention the hashtag", st.PostText)
	}
	if len(st.Scores) != 10 || !strings.HasPrefix(st.Scores[0], "1. ") {
		t.Errorf("scores = %v", st.Scores)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s := New()
	st := s.Snapshot()
	st.Scores[0] = "changed"
	if s.Snapshot().Scores[0] == "changed" {
		t.Error("snapshot shares the score slice")
	}
}

func TestCounters(t *testing.T) {
	s := New()
	for range 60 {
		s.AddMiles(1.0 / 60)
	}
	s.AddFollower()
	s.AddFollower()

	st := s.Snapshot()
	// Each 1/60 step rounds to 0.02.
	if st.Miles < 1.19 || st.Miles > 1.21 {
		t.Errorf("miles = %f, want 1.2", st.Miles)
	}
	if st.Followers != 2 {
		t.Errorf("followers = %d, want 2", st.Followers)
	}

	s.Reset()
	st = s.Snapshot()
	if st.Miles != 0 || st.Followers != 0 {
		t.Errorf("after Reset = %+v", st)
	}
}

func TestSubscribe(t *testing.T) {
	s := New()

	var got []Change
	unsubscribe := s.Subscribe(func(c Change) { got = append(got, c) })

	s.AddFollower()
	s.SetPost("@gopher", "hello")
	unsubscribe()
	s.AddFollower()

	if len(got) != 2 {
		t.Fatalf("changes = %d, want 2", len(got))
	}
	if got[0].Field != FieldFollowers || got[0].State.Followers != 1 {
		t.Errorf("first change = %+v", got[0])
	}
	if got[1].Field != FieldPost || got[1].State.PostAuthor != "@gopher" || got[1].State.PostText != "hello" {
		t.Errorf("second change = %+v", got[1])
	}
}

func TestSubscriberMayReadSession(t *testing.T) {
	s := New()
	var seen int
	s.Subscribe(func(Change) { seen = s.Snapshot().Followers })
	s.AddFollower()
	if seen != 1 {
		t.Errorf("subscriber saw %d followers, want 1", seen)
	}
}

func TestSetHashtag(t *testing.T) {
	s := New()
	s.SetHashtag("#gophers")
	st := s.Snapshot()
	if st.Hashtag != "gophers" || s.Hashtag() != "gophers" {
		t.Errorf("hashtag = %q", st.Hashtag)
	}
	if !strings.Contains(st.PostText, "#gophers") {
		t.Errorf("invitation not updated: %q", st.PostText)
	}

	// A real post is left alone.
	s.SetPost("@a", "text")
	s.SetHashtag("other")
	if s.Snapshot().PostText != "text" {
		t.Error("SetHashtag overwrote a collected post")
	}
}

func TestFieldString(t *testing.T) {
	if FieldPost.String() != "post" || Field(99).String() != "field(99)" {
		t.Error("unexpected Field names")
	}
}
