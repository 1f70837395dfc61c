package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/gdg-garage/campus-portal/internal/snapshot"
	"github.com/gdg-garage/campus-portal/internal/store"
	"github.com/gdg-garage/campus-portal/internal/views"
	"github.com/golang/glog"
)

const (
	DateLayout      = "2006-01-02"
	eventImageDir   = "event-images"
	uploadedAtStamp = "2006-01-02T15:04:05.000Z07:00"
)

type EventInput struct {
	Name        string
	Association string
	Department  string
	Venue       string
	Date        string // YYYY-MM-DD
	Time        string
	Description string
	Guideline   string
}

func (in *EventInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Association = strings.TrimSpace(in.Association)
	in.Department = strings.TrimSpace(in.Department)
	in.Venue = strings.TrimSpace(in.Venue)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)

	required := []struct{ field, value string }{
		{"name", in.Name},
		{"association", in.Association},
		{"department", in.Department},
		{"venue", in.Venue},
		{"date", in.Date},
		{"time", in.Time},
		{"description", in.Description},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalid("%s is required", r.field)
		}
	}
	if _, err := time.Parse(DateLayout, in.Date); err != nil {
		return invalid("date must be YYYY-MM-DD, got %q", in.Date)
	}
	return nil
}

// CreateEvent publishes an event on behalf of an uploader account. The image,
// when given, is stored first; the event record is only written once its URL
// is known.
func (c *Coordinator) CreateEvent(ctx context.Context, id *models.Identity, in EventInput, image *Asset) (Result, error) {
	var res Result

	if err := in.validate(); err != nil {
		return res, err
	}
	res.done(StepValidate)

	if id == nil {
		return res, stepErr(StepAuthorize, ErrAuthRequired, nil)
	}
	if !c.cfg.IsUploader(id.Email) {
		return res, stepErr(StepAuthorize, ErrNotPermitted, fmt.Errorf("%s may not publish events", id.Email))
	}
	res.done(StepAuthorize)

	imageURL := ""
	if !image.empty() {
		objectPath := fmt.Sprintf("%s/%d_%s", eventImageDir, c.now().UnixMilli(), assetName(image.Name))
		url, err := c.upload(ctx, objectPath, image.Data)
		if err != nil {
			glog.Errorf("event image upload for %q failed: %v", in.Name, err)
			return res, stepErr(StepUpload, ErrAssetUpload, err)
		}
		imageURL = url
		res.AssetURLs = append(res.AssetURLs, url)
		res.done(StepUpload)
	}

	record := map[string]any{
		snapshot.FieldEventName:     in.Name,
		snapshot.FieldAssociation:   in.Association,
		snapshot.FieldDepartment:    in.Department,
		snapshot.FieldVenue:         in.Venue,
		snapshot.FieldDate:          in.Date,
		snapshot.FieldTime:          in.Time,
		snapshot.FieldDescription:   in.Description,
		snapshot.FieldGuideline:     in.Guideline,
		snapshot.FieldImageURL:      imageURL,
		snapshot.FieldUploaderEmail: id.Email,
		snapshot.FieldUploadedAt:    c.now().UTC().Format(uploadedAtStamp),
	}
	eventID, err := c.docs.Push(ctx, store.Events, record)
	if err != nil {
		glog.Errorf("writing event %q failed: %v", in.Name, err)
		return res, stepErr(StepWrite, ErrRemoteWrite, err)
	}
	res.ID = eventID
	res.done(StepWrite)
	glog.Infof("event %s published by %s", eventID, id.Email)

	if c.notifier != nil {
		if err := c.notifier.NotifyEventCreated(snapshot.Event(eventID, record)); err != nil {
			glog.Warningf("Failed to send event notification: %v", err)
		}
	}
	return res, nil
}

// Register appends a registration for id under the event. There is no
// duplicate check: registering twice yields two entries.
func (c *Coordinator) Register(ctx context.Context, id *models.Identity, eventID string) (Result, error) {
	var res Result

	if id == nil {
		return res, stepErr(StepAuthorize, ErrAuthRequired, nil)
	}
	res.done(StepAuthorize)

	if strings.TrimSpace(eventID) == "" {
		return res, invalid("event id is required")
	}
	if parts, err := store.SplitPath(eventID); err != nil || len(parts) != 1 {
		return res, invalid("bad event id %q", eventID)
	}
	res.done(StepValidate)

	raw, err := c.docs.Get(ctx, store.EventPath(eventID))
	if err != nil {
		return res, stepErr(StepRead, ErrRemoteRead, err)
	}
	if raw == nil {
		return res, stepErr(StepRead, ErrNotFound, fmt.Errorf("event %s", eventID))
	}
	res.done(StepRead)

	name := id.DisplayName
	if name == "" {
		name = views.Anonymous
	}
	record := map[string]any{
		snapshot.FieldUserID:    id.UID,
		snapshot.FieldUserName:  name,
		snapshot.FieldUserEmail: id.Email,
		snapshot.FieldTimestamp: store.ServerTimestamp,
	}
	regID, err := c.docs.Push(ctx, store.RegistrationsPath(eventID), record)
	if err != nil {
		glog.Errorf("registering %s for event %s failed: %v", id.UID, eventID, err)
		return res, stepErr(StepWrite, ErrRemoteWrite, err)
	}
	res.ID = regID
	res.done(StepWrite)
	glog.V(1).Infof("user %s registered for event %s", id.UID, eventID)

	if c.notifier != nil {
		reg := models.Registration{ID: regID, UserID: id.UID, UserName: name, UserEmail: id.Email}
		if err := c.notifier.NotifyRegistration(snapshot.Event(eventID, raw), reg); err != nil {
			glog.Warningf("Failed to send registration notification: %v", err)
		}
	}
	return res, nil
}
