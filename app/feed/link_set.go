package feed

import "sync"

// LinkSet is the per-cycle view of links that are already stored or already
// taken by a source in the running cycle.
type LinkSet struct {
	links map[string]struct{}
	mu    sync.Mutex
}

func NewLinkSet(links []string) *LinkSet {
	set := &LinkSet{links: make(map[string]struct{}, len(links))}
	for _, link := range links {
		set.links[link] = struct{}{}
	}
	return set
}

func (s *LinkSet) Contains(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.links[link]
	return ok
}

// Claim adds link and reports whether it was absent.
func (s *LinkSet) Claim(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[link]; ok {
		return false
	}
	s.links[link] = struct{}{}
	return true
}

func (s *LinkSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}
