package snapshot

import (
	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/spf13/cast"
)

// Document field names as stored.
const (
	FieldEventName     = "eventName"
	FieldAssociation   = "association"
	FieldDepartment    = "department"
	FieldVenue         = "venue"
	FieldDate          = "date"
	FieldTime          = "time"
	FieldDescription   = "description"
	FieldGuideline     = "guideline"
	FieldImageURL      = "imageUrl"
	FieldUploaderEmail = "uploaderEmail"
	FieldUploadedAt    = "uploadedAt"
	FieldRegistrations = "registrations"

	FieldUserID    = "userId"
	FieldUserName  = "userName"
	FieldUserEmail = "userEmail"
	FieldTimestamp = "timestamp"

	FieldName               = "name"
	FieldEmail              = "email"
	FieldAge                = "age"
	FieldDOB                = "dob"
	FieldYear               = "year"
	FieldRegistrationNumber = "registrationNumber"
	FieldRollNumber         = "rollNumber"
	FieldProfileImage       = "profileImage"

	FieldDomain       = "domain"
	FieldImages       = "images"
	FieldMembers      = "members"
	FieldAchievements = "achievements"
	FieldLinks        = "links"
)

func Events(raw any) []models.Event {
	entries := Entries(raw)
	out := make([]models.Event, 0, len(entries))
	for _, e := range entries {
		out = append(out, event(e.ID, e.Fields))
	}
	return out
}

func Event(id string, raw any) models.Event {
	return event(id, fields(raw))
}

func event(id string, f map[string]any) models.Event {
	return models.Event{
		ID:            id,
		Name:          text(f, FieldEventName),
		Association:   text(f, FieldAssociation),
		Department:    text(f, FieldDepartment),
		Venue:         text(f, FieldVenue),
		Date:          text(f, FieldDate),
		Time:          text(f, FieldTime),
		Description:   text(f, FieldDescription),
		Guideline:     text(f, FieldGuideline),
		ImageURL:      text(f, FieldImageURL),
		UploaderEmail: text(f, FieldUploaderEmail),
		UploadedAt:    text(f, FieldUploadedAt),
		Registrations: Registrations(f[FieldRegistrations]),
		Extra: extra(f, FieldEventName, FieldAssociation, FieldDepartment, FieldVenue,
			FieldDate, FieldTime, FieldDescription, FieldGuideline, FieldImageURL,
			FieldUploaderEmail, FieldUploadedAt, FieldRegistrations),
	}
}

func Registrations(raw any) []models.Registration {
	entries := Entries(raw)
	out := make([]models.Registration, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.Registration{
			ID:        e.ID,
			UserID:    text(e.Fields, FieldUserID),
			UserName:  text(e.Fields, FieldUserName),
			UserEmail: text(e.Fields, FieldUserEmail),
			Timestamp: cast.ToInt64(e.Fields[FieldTimestamp]),
			Extra:     extra(e.Fields, FieldUserID, FieldUserName, FieldUserEmail, FieldTimestamp),
		})
	}
	return out
}

func Users(raw any) []models.User {
	entries := Entries(raw)
	out := make([]models.User, 0, len(entries))
	for _, e := range entries {
		out = append(out, user(e.ID, e.Fields))
	}
	return out
}

func User(id string, raw any) models.User {
	return user(id, fields(raw))
}

func user(id string, f map[string]any) models.User {
	return models.User{
		ID:                 id,
		Name:               text(f, FieldName),
		Email:              text(f, FieldEmail),
		Age:                text(f, FieldAge),
		DOB:                text(f, FieldDOB),
		Department:         text(f, FieldDepartment),
		Year:               text(f, FieldYear),
		RegistrationNumber: text(f, FieldRegistrationNumber),
		RollNumber:         text(f, FieldRollNumber),
		ProfileImage:       text(f, FieldProfileImage),
		Extra: extra(f, FieldName, FieldEmail, FieldAge, FieldDOB, FieldDepartment,
			FieldYear, FieldRegistrationNumber, FieldRollNumber, FieldProfileImage),
	}
}

func Projects(raw any) []models.Project {
	entries := Entries(raw)
	out := make([]models.Project, 0, len(entries))
	for _, e := range entries {
		out = append(out, project(e.ID, e.Fields))
	}
	return out
}

func Project(id string, raw any) models.Project {
	return project(id, fields(raw))
}

func project(id string, f map[string]any) models.Project {
	return models.Project{
		ID:           id,
		Name:         text(f, FieldName),
		Description:  text(f, FieldDescription),
		Domain:       text(f, FieldDomain),
		Images:       list(f, FieldImages),
		Members:      list(f, FieldMembers),
		Achievements: text(f, FieldAchievements),
		Links:        text(f, FieldLinks),
		Extra: extra(f, FieldName, FieldDescription, FieldDomain, FieldImages,
			FieldMembers, FieldAchievements, FieldLinks),
	}
}
