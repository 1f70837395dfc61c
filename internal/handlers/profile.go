package handlers

import (
	"context"

	"github.com/gdg-garage/campus-portal/internal/auth"
	"github.com/gdg-garage/campus-portal/internal/coordinator"
	"github.com/gdg-garage/campus-portal/internal/models"
)

type ProfileHandler struct {
	coord       *coordinator.Coordinator
	reads       *Reads
	authHandler *auth.AuthHandler
}

func NewProfileHandler(coord *coordinator.Coordinator, reads *Reads, authHandler *auth.AuthHandler) *ProfileHandler {
	return &ProfileHandler{coord: coord, reads: reads, authHandler: authHandler}
}

type ProfileResponse struct {
	Body models.User
}

type UpdateProfileRequest struct {
	auth.AuthInput
	Body struct {
		Name               string `json:"name,omitempty"`
		Age                string `json:"age,omitempty"`
		DOB                string `json:"dob,omitempty" doc:"YYYY-MM-DD"`
		Department         string `json:"department,omitempty"`
		Year               string `json:"year,omitempty"`
		RegistrationNumber string `json:"registration_number,omitempty"`
		RollNumber         string `json:"roll_number,omitempty"`
	}
}

type ChangeImageRequest struct {
	auth.AuthInput
	Body ImageUpload
}

func (h *ProfileHandler) HandleGetProfile(ctx context.Context, input *auth.AuthInput) (*ProfileResponse, error) {
	id, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	user, err := h.reads.Profile(ctx, id.UID)
	if err != nil {
		return nil, err
	}
	if user.Email == "" {
		user.Email = id.Email
	}
	return &ProfileResponse{Body: user}, nil
}

func (h *ProfileHandler) HandleUpdateProfile(ctx context.Context, input *UpdateProfileRequest) (*ResultResponse, error) {
	id := identify(ctx, h.authHandler, input.Cookie)
	res, err := h.coord.UpdateProfile(ctx, id, coordinator.ProfileInput{
		Name:               input.Body.Name,
		Age:                input.Body.Age,
		DOB:                input.Body.DOB,
		Department:         input.Body.Department,
		Year:               input.Body.Year,
		RegistrationNumber: input.Body.RegistrationNumber,
		RollNumber:         input.Body.RollNumber,
	})
	if err != nil {
		return nil, pipelineError(err)
	}
	return &ResultResponse{Body: res}, nil
}

func (h *ProfileHandler) HandleChangeImage(ctx context.Context, input *ChangeImageRequest) (*ResultResponse, error) {
	id := identify(ctx, h.authHandler, input.Cookie)
	res, err := h.coord.ChangeProfileImage(ctx, id, coordinator.Asset{Name: input.Body.Name, Data: input.Body.Data})
	if err != nil {
		return nil, pipelineError(err)
	}
	return &ResultResponse{Body: res}, nil
}

func (h *ProfileHandler) HandleRemoveImage(ctx context.Context, input *auth.AuthInput) (*ResultResponse, error) {
	id := identify(ctx, h.authHandler, input.Cookie)
	res, err := h.coord.RemoveProfileImage(ctx, id)
	if err != nil {
		return nil, pipelineError(err)
	}
	return &ResultResponse{Body: res}, nil
}
