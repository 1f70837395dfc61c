package models

type Project struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Domain       string         `json:"domain"`
	Images       []string       `json:"images"`
	Members      []string       `json:"members"`
	Achievements string         `json:"achievements,omitempty"`
	Links        string         `json:"links,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}
