package views

import (
	"context"

	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

// UserLookup is a one-shot read of a single user record. found is false when
// no record exists.
type UserLookup interface {
	LookupUser(ctx context.Context, uid string) (user models.User, found bool, err error)
}

type RosterEntry struct {
	RegistrationID     string `json:"registration_id"`
	UserID             string `json:"user_id"`
	UserName           string `json:"user_name"`
	UserEmail          string `json:"user_email"`
	RegistrationNumber string `json:"registration_number"`
	Timestamp          int64  `json:"timestamp"`
}

// EnrichRoster resolves every registration's user concurrently and returns
// only once all lookups are done. A missing user or a failed lookup degrades
// that entry to Anonymous / N/A; it never fails the roster.
func EnrichRoster(ctx context.Context, registrations []models.Registration, lookup UserLookup) []RosterEntry {
	out := make([]RosterEntry, len(registrations))
	var g errgroup.Group
	for i, r := range registrations {
		out[i] = RosterEntry{
			RegistrationID:     r.ID,
			UserID:             r.UserID,
			UserName:           Anonymous,
			UserEmail:          r.UserEmail,
			RegistrationNumber: NotAvailable,
			Timestamp:          r.Timestamp,
		}
		if r.UserID == "" {
			continue
		}
		g.Go(func() error {
			u, found, err := lookup.LookupUser(ctx, r.UserID)
			if err != nil {
				glog.Warningf("roster lookup for user %s (registration %s) failed: %v", r.UserID, r.ID, err)
				return nil
			}
			if !found {
				return nil
			}
			if u.Name != "" {
				out[i].UserName = u.Name
			}
			if u.RegistrationNumber != "" {
				out[i].RegistrationNumber = u.RegistrationNumber
			}
			return nil
		})
	}
	g.Wait()
	return out
}
