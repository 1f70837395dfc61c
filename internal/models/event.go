package models

type Event struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Association   string         `json:"association"`
	Department    string         `json:"department"`
	Venue         string         `json:"venue"`
	Date          string         `json:"date"` // YYYY-MM-DD
	Time          string         `json:"time"`
	Description   string         `json:"description"`
	Guideline     string         `json:"guideline"`
	ImageURL      string         `json:"image_url"`
	UploaderEmail string         `json:"uploader_email"`
	UploadedAt    string         `json:"uploaded_at"`
	Registrations []Registration `json:"registrations"`
	Extra         map[string]any `json:"extra,omitempty"`
}
