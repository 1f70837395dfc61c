package store

// Top-level collections of the portal.
const (
	Events   = "events"
	Projects = "projects"
	Users    = "users"
)

func EventPath(eventID string) string {
	return Join(Events, eventID)
}

func RegistrationsPath(eventID string) string {
	return Join(Events, eventID, "registrations")
}

func UserPath(uid string) string {
	return Join(Users, uid)
}
