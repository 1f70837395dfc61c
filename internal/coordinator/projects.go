package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/gdg-garage/campus-portal/internal/snapshot"
	"github.com/gdg-garage/campus-portal/internal/store"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const projectImageDir = "project-images"

type ProjectInput struct {
	Name         string
	Description  string
	Domain       string
	Members      []string
	Achievements string
	Links        string
}

func (in *ProjectInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Domain = strings.TrimSpace(in.Domain)
	if in.Name == "" {
		return invalid("name is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return invalid("description is required")
	}
	if in.Domain == "" {
		return invalid("domain is required")
	}

	members := make([]string, 0, len(in.Members))
	for _, m := range in.Members {
		if m = strings.TrimSpace(m); m != "" {
			members = append(members, m)
		}
	}
	in.Members = members
	return nil
}

// CreateProject uploads every image concurrently, then writes the project
// with the image URLs in the order they were given. Any failed upload stops
// the pipeline before the record is written.
func (c *Coordinator) CreateProject(ctx context.Context, id *models.Identity, in ProjectInput, images []Asset) (Result, error) {
	var res Result

	if err := in.validate(); err != nil {
		return res, err
	}
	res.done(StepValidate)

	if id == nil {
		return res, stepErr(StepAuthorize, ErrAuthRequired, nil)
	}
	res.done(StepAuthorize)

	urls := make([]string, 0, len(images))
	if len(images) > 0 {
		uploaded := make([]string, len(images))
		g, gctx := errgroup.WithContext(ctx)
		for i := range images {
			if images[i].empty() {
				continue
			}
			g.Go(func() error {
				url, err := c.upload(gctx, projectImageDir+"/"+uuid.NewString(), images[i].Data)
				if err != nil {
					return fmt.Errorf("image %d: %w", i, err)
				}
				uploaded[i] = url
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			for _, u := range uploaded {
				if u != "" {
					res.AssetURLs = append(res.AssetURLs, u)
				}
			}
			glog.Errorf("project %q image upload failed: %v", in.Name, err)
			return res, stepErr(StepUpload, ErrAssetUpload, err)
		}
		for _, u := range uploaded {
			if u != "" {
				urls = append(urls, u)
			}
		}
		res.AssetURLs = urls
		res.done(StepUpload)
	}

	record := map[string]any{
		snapshot.FieldName:         in.Name,
		snapshot.FieldDescription:  in.Description,
		snapshot.FieldDomain:       in.Domain,
		snapshot.FieldImages:       urls,
		snapshot.FieldMembers:      in.Members,
		snapshot.FieldAchievements: in.Achievements,
		snapshot.FieldLinks:        in.Links,
	}
	projectID, err := c.docs.Push(ctx, store.Projects, record)
	if err != nil {
		glog.Errorf("writing project %q failed: %v", in.Name, err)
		return res, stepErr(StepWrite, ErrRemoteWrite, err)
	}
	res.ID = projectID
	res.done(StepWrite)
	glog.Infof("project %s created by %s", projectID, id.UID)
	return res, nil
}
