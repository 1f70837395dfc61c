package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/gdg-garage/campus-portal/internal/objectstore"
	"github.com/gdg-garage/campus-portal/internal/snapshot"
	"github.com/gdg-garage/campus-portal/internal/store"
	"github.com/golang/glog"
	"github.com/spf13/cast"
)

const (
	profileImageDir = "profileImages"

	// PlaceholderImage marks a profile without an uploaded image.
	PlaceholderImage = "default_image_url_here"
)

type ProfileInput struct {
	Name               string
	Age                string
	DOB                string // YYYY-MM-DD
	Department         string
	Year               string
	RegistrationNumber string
	RollNumber         string
}

func (in *ProfileInput) fields() (map[string]any, error) {
	dob := strings.TrimSpace(in.DOB)
	if dob != "" {
		if _, err := time.Parse(DateLayout, dob); err != nil {
			return nil, invalid("dob must be YYYY-MM-DD, got %q", dob)
		}
	}
	age := strings.TrimSpace(in.Age)
	if age != "" {
		if n, err := strconv.Atoi(age); err != nil || n < 0 {
			return nil, invalid("age must be a non-negative number, got %q", age)
		}
	}
	return map[string]any{
		snapshot.FieldName:               strings.TrimSpace(in.Name),
		snapshot.FieldAge:                age,
		snapshot.FieldDOB:                dob,
		snapshot.FieldDepartment:         strings.TrimSpace(in.Department),
		snapshot.FieldYear:               strings.TrimSpace(in.Year),
		snapshot.FieldRegistrationNumber: strings.TrimSpace(in.RegistrationNumber),
		snapshot.FieldRollNumber:         strings.TrimSpace(in.RollNumber),
	}, nil
}

// UpdateProfile overwrites the editable profile fields of the caller.
func (c *Coordinator) UpdateProfile(ctx context.Context, id *models.Identity, in ProfileInput) (Result, error) {
	var res Result

	if id == nil {
		return res, stepErr(StepAuthorize, ErrAuthRequired, nil)
	}
	res.done(StepAuthorize)

	fields, err := in.fields()
	if err != nil {
		return res, err
	}
	res.done(StepValidate)

	if err := c.docs.Update(ctx, store.UserPath(id.UID), fields); err != nil {
		glog.Errorf("updating profile of %s failed: %v", id.UID, err)
		return res, stepErr(StepWrite, ErrRemoteWrite, err)
	}
	res.ID = id.UID
	res.done(StepWrite)
	return res, nil
}

func deletable(url string) bool {
	return url != "" && url != PlaceholderImage
}

func (c *Coordinator) currentImage(ctx context.Context, uid string) (string, error) {
	raw, err := c.docs.Get(ctx, store.Join(store.Users, uid, snapshot.FieldProfileImage))
	if err != nil {
		return "", err
	}
	return cast.ToString(raw), nil
}

// dropImage deletes a superseded profile image. The record no longer points
// at it, so failures only leave an orphaned object behind.
func (c *Coordinator) dropImage(ctx context.Context, res *Result, url string) {
	if !deletable(url) {
		return
	}
	err := c.objects.Delete(ctx, url)
	switch {
	case err == nil:
		res.done(StepCleanup)
	case errors.Is(err, objectstore.ErrNotFound), errors.Is(err, objectstore.ErrForeignURL):
		glog.V(1).Infof("previous profile image %s not removed: %v", url, err)
	default:
		glog.Warningf("failed to delete previous profile image %s: %v", url, err)
	}
}

// ChangeProfileImage uploads a new image, points the profile at it and then
// deletes the previous one. Changes and removals for one user are serialised
// so a delete never races a newer upload.
func (c *Coordinator) ChangeProfileImage(ctx context.Context, id *models.Identity, image Asset) (Result, error) {
	var res Result

	if id == nil {
		return res, stepErr(StepAuthorize, ErrAuthRequired, nil)
	}
	res.done(StepAuthorize)

	if image.empty() {
		return res, invalid("image is required")
	}
	res.done(StepValidate)

	unlock := c.locks.lock(id.UID)
	defer unlock()

	previous, err := c.currentImage(ctx, id.UID)
	if err != nil {
		return res, stepErr(StepRead, ErrRemoteRead, err)
	}
	res.done(StepRead)

	objectPath := fmt.Sprintf("%s/%s/%d_%s", profileImageDir, id.UID, c.now().UnixMilli(), assetName(image.Name))
	url, err := c.upload(ctx, objectPath, image.Data)
	if err != nil {
		glog.Errorf("profile image upload for %s failed: %v", id.UID, err)
		return res, stepErr(StepUpload, ErrAssetUpload, err)
	}
	res.AssetURLs = []string{url}
	res.done(StepUpload)

	if err := c.docs.Update(ctx, store.UserPath(id.UID), map[string]any{snapshot.FieldProfileImage: url}); err != nil {
		glog.Errorf("linking profile image for %s failed: %v", id.UID, err)
		return res, stepErr(StepWrite, ErrRemoteWrite, err)
	}
	res.ID = id.UID
	res.done(StepWrite)

	if previous != url {
		c.dropImage(ctx, &res, previous)
	}
	return res, nil
}

// RemoveProfileImage clears the profile image and deletes the stored object.
func (c *Coordinator) RemoveProfileImage(ctx context.Context, id *models.Identity) (Result, error) {
	var res Result

	if id == nil {
		return res, stepErr(StepAuthorize, ErrAuthRequired, nil)
	}
	res.done(StepAuthorize)

	unlock := c.locks.lock(id.UID)
	defer unlock()

	previous, err := c.currentImage(ctx, id.UID)
	if err != nil {
		return res, stepErr(StepRead, ErrRemoteRead, err)
	}
	res.done(StepRead)

	if err := c.docs.Update(ctx, store.UserPath(id.UID), map[string]any{snapshot.FieldProfileImage: ""}); err != nil {
		glog.Errorf("clearing profile image for %s failed: %v", id.UID, err)
		return res, stepErr(StepWrite, ErrRemoteWrite, err)
	}
	res.ID = id.UID
	res.done(StepWrite)

	c.dropImage(ctx, &res, previous)
	return res, nil
}
