package handlers

import (
	"context"

	"github.com/gdg-garage/campus-portal/internal/auth"
	"github.com/gdg-garage/campus-portal/internal/coordinator"
	"github.com/gdg-garage/campus-portal/internal/views"
)

type ProjectHandler struct {
	coord       *coordinator.Coordinator
	reads       *Reads
	authHandler *auth.AuthHandler
}

func NewProjectHandler(coord *coordinator.Coordinator, reads *Reads, authHandler *auth.AuthHandler) *ProjectHandler {
	return &ProjectHandler{coord: coord, reads: reads, authHandler: authHandler}
}

type ListProjectsRequest struct {
	Domain   string   `query:"domain" doc:"Domain facet; All or empty matches everything"`
	Expanded []string `query:"expanded" doc:"Ids of projects to show in full"`
}

type ListProjectsResponse struct {
	Body struct {
		Domains  []string            `json:"domains"`
		Domain   string              `json:"domain"`
		Projects []views.ProjectCard `json:"projects"`
	}
}

type CreateProjectRequest struct {
	auth.AuthInput
	Body struct {
		Name         string        `json:"name"`
		Description  string        `json:"description"`
		Domain       string        `json:"domain"`
		Members      []string      `json:"members,omitempty"`
		Achievements string        `json:"achievements,omitempty"`
		Links        string        `json:"links,omitempty"`
		Images       []ImageUpload `json:"images,omitempty"`
	}
}

func (h *ProjectHandler) HandleListProjects(ctx context.Context, input *ListProjectsRequest) (*ListProjectsResponse, error) {
	pv, err := h.reads.Projects(ctx)
	if err != nil {
		return nil, err
	}
	domain := input.Domain
	if domain == "" {
		domain = views.AllDomains
	}

	res := &ListProjectsResponse{}
	res.Body.Domains = pv.Domains
	res.Body.Domain = domain
	res.Body.Projects = views.ProjectCards(views.FilterByDomain(pv.Projects, domain), views.NewExpandSet(input.Expanded...).Expanded)
	return res, nil
}

func (h *ProjectHandler) HandleCreateProject(ctx context.Context, input *CreateProjectRequest) (*ResultResponse, error) {
	id := identify(ctx, h.authHandler, input.Cookie)
	in := coordinator.ProjectInput{
		Name:         input.Body.Name,
		Description:  input.Body.Description,
		Domain:       input.Body.Domain,
		Members:      input.Body.Members,
		Achievements: input.Body.Achievements,
		Links:        input.Body.Links,
	}
	images := make([]coordinator.Asset, 0, len(input.Body.Images))
	for _, img := range input.Body.Images {
		images = append(images, coordinator.Asset{Name: img.Name, Data: img.Data})
	}
	res, err := h.coord.CreateProject(ctx, id, in, images)
	if err != nil {
		return nil, pipelineError(err)
	}
	return &ResultResponse{Body: res}, nil
}
