package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/campus-portal/internal/auth"
	"github.com/gdg-garage/campus-portal/internal/coordinator"
	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/golang/glog"
)

// pipelineError turns a coordinator failure into the notice shown to the user.
func pipelineError(err error) error {
	switch {
	case errors.Is(err, coordinator.ErrValidation):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, coordinator.ErrAuthRequired):
		return huma.Error401Unauthorized("Unauthorized")
	case errors.Is(err, coordinator.ErrNotPermitted):
		return huma.Error403Forbidden(err.Error())
	case errors.Is(err, coordinator.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, coordinator.ErrAssetUpload),
		errors.Is(err, coordinator.ErrRemoteWrite),
		errors.Is(err, coordinator.ErrRemoteRead):
		return huma.Error502BadGateway(err.Error())
	}
	glog.Errorf("unexpected pipeline error: %v", err)
	return huma.Error500InternalServerError("Internal error")
}

// identify resolves the caller or returns nil; pipelines reject a nil
// identity themselves before doing any I/O.
func identify(ctx context.Context, a *auth.AuthHandler, cookie string) *models.Identity {
	id, err := a.Authorize(ctx, cookie)
	if err != nil {
		return nil
	}
	return id
}
