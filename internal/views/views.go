// Package views derives read-only projections from decoded collections.
// Every function recomputes from scratch; nothing is cached or persisted here.
package views

import (
	"strings"

	"github.com/gdg-garage/campus-portal/internal/models"
)

const (
	// AllDomains is the facet that matches every project.
	AllDomains = "All"

	NotAvailable = "N/A"
	Anonymous    = "Anonymous"

	PreviewWords = 30
	Ellipsis     = "..."
)

// Domains returns AllDomains followed by the distinct non-empty project
// domains in order of first appearance.
func Domains(projects []models.Project) []string {
	out := []string{AllDomains}
	seen := map[string]bool{AllDomains: true}
	for _, p := range projects {
		if p.Domain == "" || seen[p.Domain] {
			continue
		}
		seen[p.Domain] = true
		out = append(out, p.Domain)
	}
	return out
}

// FilterByDomain keeps the projects in domain. AllDomains and "" keep everything.
func FilterByDomain(projects []models.Project, domain string) []models.Project {
	if domain == "" || domain == AllDomains {
		return projects
	}
	out := []models.Project{}
	for _, p := range projects {
		if p.Domain == domain {
			out = append(out, p)
		}
	}
	return out
}

type RegisteredEvent struct {
	EventID     string `json:"event_id"`
	Name        string `json:"name"`
	Association string `json:"association"`
	Venue       string `json:"venue"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// RegisteredEventsFor lists the events that have at least one registration
// by uid. It scans every registration of every event.
func RegisteredEventsFor(events []models.Event, uid string) []RegisteredEvent {
	out := []RegisteredEvent{}
	if uid == "" {
		return out
	}
	for _, ev := range events {
		if !registeredIn(ev, uid) {
			continue
		}
		out = append(out, RegisteredEvent{
			EventID:     ev.ID,
			Name:        ev.Name,
			Association: orNA(ev.Association),
			Venue:       orNA(ev.Venue),
			Date:        orNA(ev.Date),
			Time:        orNA(ev.Time),
		})
	}
	return out
}

func registeredIn(ev models.Event, uid string) bool {
	for _, r := range ev.Registrations {
		if r.UserID == uid {
			return true
		}
	}
	return false
}

// Preview returns the first PreviewWords whitespace separated words of
// description followed by Ellipsis, or description unchanged when it is short
// enough. The second result reports whether it was truncated.
func Preview(description string) (string, bool) {
	words := strings.Fields(description)
	if len(words) <= PreviewWords {
		return description, false
	}
	return strings.Join(words[:PreviewWords], " ") + Ellipsis, true
}

// DisplayDate turns a stored YYYY-MM-DD date into DD/MM/YYYY. Anything else
// is returned as is.
func DisplayDate(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return date
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
