package views

import "github.com/gdg-garage/campus-portal/internal/models"

// EventCard is an event as listed publicly. Registrations are reduced to a
// count; the roster is only shown to the uploader.
type EventCard struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Association       string `json:"association"`
	Department        string `json:"department"`
	Venue             string `json:"venue"`
	Date              string `json:"date"`
	DisplayDate       string `json:"display_date"`
	Time              string `json:"time"`
	Description       string `json:"description"`
	Guideline         string `json:"guideline,omitempty"`
	ImageURL          string `json:"image_url,omitempty"`
	UploaderEmail     string `json:"uploader_email"`
	UploadedAt        string `json:"uploaded_at,omitempty"`
	RegistrationCount int    `json:"registration_count"`
}

func NewEventCard(e models.Event) EventCard {
	return EventCard{
		ID:                e.ID,
		Name:              e.Name,
		Association:       e.Association,
		Department:        e.Department,
		Venue:             e.Venue,
		Date:              e.Date,
		DisplayDate:       DisplayDate(e.Date),
		Time:              e.Time,
		Description:       e.Description,
		Guideline:         e.Guideline,
		ImageURL:          e.ImageURL,
		UploaderEmail:     e.UploaderEmail,
		UploadedAt:        e.UploadedAt,
		RegistrationCount: len(e.Registrations),
	}
}

func EventCards(events []models.Event) []EventCard {
	out := make([]EventCard, 0, len(events))
	for _, e := range events {
		out = append(out, NewEventCard(e))
	}
	return out
}

// FindEvent returns the event with id from a decoded collection.
func FindEvent(events []models.Event, id string) (models.Event, bool) {
	for _, e := range events {
		if e.ID == id {
			return e, true
		}
	}
	return models.Event{}, false
}
