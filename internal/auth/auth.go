package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/gdg-garage/campus-portal/internal/config"
	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/gdg-garage/campus-portal/internal/snapshot"
	"github.com/gdg-garage/campus-portal/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const (
	CookieName        = "auth_token"
	TokenDuration     = 24 * time.Hour
	MinPasswordLength = 6
)

var (
	ErrEmailInUse        = errors.New("email already in use")
	ErrWeakPassword      = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrUnknownIdentity   = errors.New("unknown identity")
	ErrProfileWrite      = errors.New("failed to create profile")
	ErrUnverifiedEmail   = errors.New("email address is not verified")
)

// Documents is the part of the document store sign-up needs.
type Documents interface {
	Set(ctx context.Context, path string, value any) error
}

type AuthHandler struct {
	oauthConfig *oauth2.Config
	db          *gorm.DB
	docs        Documents
	cfg         *config.Config
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB, docs Documents) *AuthHandler {
	return &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
			Scopes:       []string{"identify", "email", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  DiscordAuthorizeEndpoint,
				TokenURL: DiscordTokenEndpoint,
			},
		},
		db:   db,
		docs: docs,
		cfg:  cfg,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// SignUp creates an account and its profile document. Profile fields other
// than name and email start empty.
func (h *AuthHandler) SignUp(ctx context.Context, email, password, displayName string) (*models.Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return h.createAccount(ctx, models.Account{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(displayName),
	})
}

func (h *AuthHandler) createAccount(ctx context.Context, account models.Account) (*models.Identity, error) {
	db := h.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Account{}).Where("email = ?", account.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailInUse
	}
	if err := db.Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}

	profile := map[string]any{
		snapshot.FieldName:               account.DisplayName,
		snapshot.FieldEmail:              account.Email,
		snapshot.FieldAge:                "",
		snapshot.FieldDOB:                "",
		snapshot.FieldDepartment:         "",
		snapshot.FieldYear:               "",
		snapshot.FieldRegistrationNumber: "",
		snapshot.FieldRollNumber:         "",
	}
	if err := h.docs.Set(ctx, store.UserPath(account.UID), profile); err != nil {
		// Without a profile the account is unusable; drop it so the email can be reused.
		if delErr := db.Unscoped().Delete(&account).Error; delErr != nil {
			glog.Errorf("failed to remove account %s after profile write failure: %v", account.UID, delErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrProfileWrite, err)
	}

	glog.Infof("account %s created for %s", account.UID, account.Email)
	return identityOf(account), nil
}

func (h *AuthHandler) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, found, err := h.findAccount(ctx, "email", email)
	if err != nil {
		return nil, err
	}
	if !found || account.PasswordHash == "" {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	return identityOf(account), nil
}

// Identity resolves uid to the current account details.
func (h *AuthHandler) Identity(ctx context.Context, uid string) (*models.Identity, error) {
	account, found, err := h.findAccount(ctx, "uid", uid)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUnknownIdentity
	}
	return identityOf(account), nil
}

// findAccount looks up the account whose column equals value. A miss is not
// an error.
func (h *AuthHandler) findAccount(ctx context.Context, column, value string) (models.Account, bool, error) {
	var account models.Account
	res := h.db.WithContext(ctx).Where(column+" = ?", value).Limit(1).Find(&account)
	if res.Error != nil {
		return models.Account{}, false, res.Error
	}
	return account, res.RowsAffected > 0, nil
}

// IsUploader reports whether the identity may publish events.
func (h *AuthHandler) IsUploader(id *models.Identity) bool {
	return id != nil && h.cfg.IsUploader(id.Email)
}

func identityOf(a models.Account) *models.Identity {
	return &models.Identity{UID: a.UID, Email: a.Email, DisplayName: a.DisplayName}
}

func (h *AuthHandler) GenerateToken(uid string) (string, error) {
	claims := jwt.MapClaims{
		"uid": uid,
		"exp": time.Now().Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

// ParseToken validates a session token and returns its uid and expiry.
func (h *AuthHandler) ParseToken(tokenString string) (string, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", time.Time{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", time.Time{}, errors.New("invalid token claims")
	}
	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", time.Time{}, errors.New("invalid token claims")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "", time.Time{}, errors.New("invalid token expiry")
	}
	return uid, exp.Time, nil
}
