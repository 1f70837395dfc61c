package views

import (
	"sync"

	"github.com/gdg-garage/campus-portal/internal/models"
)

type ProjectCard struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Truncated    bool     `json:"truncated"`
	Expanded     bool     `json:"expanded"`
	Domain       string   `json:"domain,omitempty"`
	CoverImage   string   `json:"cover_image,omitempty"`
	Images       []string `json:"images"`
	Members      []string `json:"members,omitempty"`
	Achievements string   `json:"achievements,omitempty"`
	Links        string   `json:"links,omitempty"`
}

// ProjectCards renders projects as summaries. Only expanded projects carry the
// full description and the detail fields.
func ProjectCards(projects []models.Project, expanded func(id string) bool) []ProjectCard {
	out := make([]ProjectCard, 0, len(projects))
	for _, p := range projects {
		card := ProjectCard{
			ID:     p.ID,
			Name:   p.Name,
			Images: p.Images,
		}
		if len(p.Images) > 0 {
			card.CoverImage = p.Images[0]
		}
		if expanded != nil && expanded(p.ID) {
			card.Expanded = true
			card.Description = p.Description
			card.Domain = p.Domain
			card.Members = p.Members
			card.Achievements = p.Achievements
			card.Links = p.Links
		} else {
			card.Description, card.Truncated = Preview(p.Description)
		}
		out = append(out, card)
	}
	return out
}

// ExpandSet is per-viewer UI state: which records are shown expanded.
type ExpandSet struct {
	mu  sync.Mutex
	ids map[string]bool
}

func NewExpandSet(ids ...string) *ExpandSet {
	s := &ExpandSet{ids: map[string]bool{}}
	for _, id := range ids {
		if id != "" {
			s.ids[id] = true
		}
	}
	return s
}

// Toggle flips id and returns its new state.
func (s *ExpandSet) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids[id] {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = true
	return true
}

func (s *ExpandSet) Expanded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[id]
}
