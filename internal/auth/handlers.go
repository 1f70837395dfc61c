package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang/glog"
)

type SignUpRequest struct {
	Body struct {
		Email       string `json:"email" doc:"Account email"`
		Password    string `json:"password" doc:"At least six characters"`
		DisplayName string `json:"display_name,omitempty" doc:"Name shown on registrations"`
	}
}

type LoginRequest struct {
	Body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
}

type SessionResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      MeBody
}

type MeBody struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Uploader    bool   `json:"uploader" doc:"Whether this account may publish events"`
}

type MeResponse struct {
	Body MeBody
}

type LogoutResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
}

func signUpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, ErrEmailInUse):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, ErrProfileWrite):
		return huma.Error502BadGateway(err.Error())
	}
	glog.Errorf("sign-up failed: %v", err)
	return huma.Error500InternalServerError("Failed to create account")
}

func (h *AuthHandler) session(ctx context.Context, uid string) (*SessionResponse, error) {
	id, err := h.Identity(ctx, uid)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load account")
	}
	token, err := h.GenerateToken(uid)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate token")
	}
	return &SessionResponse{
		SetCookie: SessionCookie(token),
		Body: MeBody{
			UID:         id.UID,
			Email:       id.Email,
			DisplayName: id.DisplayName,
			Uploader:    h.IsUploader(id),
		},
	}, nil
}

func (h *AuthHandler) HandleSignUp(ctx context.Context, input *SignUpRequest) (*SessionResponse, error) {
	id, err := h.SignUp(ctx, input.Body.Email, input.Body.Password, input.Body.DisplayName)
	if err != nil {
		return nil, signUpError(err)
	}
	return h.session(ctx, id.UID)
}

func (h *AuthHandler) HandleLogin(ctx context.Context, input *LoginRequest) (*SessionResponse, error) {
	id, err := h.SignIn(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredential) {
			return nil, huma.Error401Unauthorized(err.Error())
		}
		glog.Errorf("sign-in failed: %v", err)
		return nil, huma.Error500InternalServerError("Failed to sign in")
	}
	return h.session(ctx, id.UID)
}

func (h *AuthHandler) HandleLogout(ctx context.Context, _ *struct{}) (*LogoutResponse, error) {
	return &LogoutResponse{SetCookie: ClearedCookie()}, nil
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *AuthInput) (*MeResponse, error) {
	id, err := h.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	return &MeResponse{Body: MeBody{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Uploader:    h.IsUploader(id),
	}}, nil
}
