package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	DiscordAuthorizeEndpoint = "https://discord.com/api/oauth2/authorize"
	DiscordTokenEndpoint     = "https://discord.com/api/oauth2/token"
	DiscordUserAPI           = "https://discord.com/api/users/@me"
	DiscordUserGuildsAPI     = "https://discord.com/api/users/@me/guilds"

	stateCookieName = "oauth_state"
)

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Email      string `json:"email"`
	Verified   bool   `json:"verified"`
}

func (u discordUser) displayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func (h *AuthHandler) HandleDiscordLogin(w http.ResponseWriter, r *http.Request) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}
	state := hex.EncodeToString(buf)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	url := h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) HandleDiscordCallback(w http.ResponseWriter, r *http.Request) {
	state, err := r.Cookie(stateCookieName)
	if err != nil || state.Value == "" || state.Value != r.URL.Query().Get("state") {
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code not found", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	token, err := h.oauthConfig.Exchange(ctx, code)
	if err != nil {
		glog.Warningf("discord token exchange failed: %v", err)
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	client := h.oauthConfig.Client(ctx, token)

	// Check Guild Membership
	if h.cfg.DiscordGuildID != "" {
		guildsResp, err := client.Get(DiscordUserGuildsAPI)
		if err != nil {
			http.Error(w, "Failed to get user guilds", http.StatusInternalServerError)
			return
		}
		defer guildsResp.Body.Close()

		var guilds []struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(guildsResp.Body).Decode(&guilds); err != nil {
			http.Error(w, "Failed to decode user guilds", http.StatusInternalServerError)
			return
		}

		isMember := false
		for _, g := range guilds {
			if g.ID == h.cfg.DiscordGuildID {
				isMember = true
				break
			}
		}

		if !isMember {
			http.Error(w, "Access denied: You are not a member of the required guild.", http.StatusForbidden)
			return
		}
	}

	resp, err := client.Get(DiscordUserAPI)
	if err != nil {
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	var du discordUser
	if err := json.NewDecoder(resp.Body).Decode(&du); err != nil {
		http.Error(w, "Failed to decode user info", http.StatusInternalServerError)
		return
	}

	id, err := h.linkDiscordAccount(ctx, du)
	if errors.Is(err, ErrUnverifiedEmail) {
		http.Error(w, "Verify your Discord email address before signing in.", http.StatusForbidden)
		return
	}
	if err != nil {
		glog.Errorf("discord sign-in for %s failed: %v", du.ID, err)
		http.Error(w, "Failed to sign in", http.StatusInternalServerError)
		return
	}

	jwtToken, err := h.GenerateToken(id.UID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	cookie := SessionCookie(jwtToken)
	http.SetCookie(w, &cookie)
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/", MaxAge: -1})

	http.Redirect(w, r, h.cfg.FrontendURL, http.StatusTemporaryRedirect)
}

// linkDiscordAccount finds the account for a Discord user, first by Discord
// id and then by email, creating one with a profile if neither matches. The
// email is only trusted once Discord has verified it.
func (h *AuthHandler) linkDiscordAccount(ctx context.Context, du discordUser) (*models.Identity, error) {
	if du.ID == "" {
		return nil, errors.New("discord user without id")
	}
	account, found, err := h.findAccount(ctx, "discord_id", du.ID)
	if err != nil {
		return nil, err
	}
	if found {
		return identityOf(account), nil
	}

	email := strings.ToLower(strings.TrimSpace(du.Email))
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if !du.Verified {
		return nil, ErrUnverifiedEmail
	}
	account, found, err = h.findAccount(ctx, "email", email)
	if err != nil {
		return nil, err
	}
	if found {
		account.DiscordID = du.ID
		if err := h.db.WithContext(ctx).Save(&account).Error; err != nil {
			return nil, err
		}
		return identityOf(account), nil
	}

	return h.createAccount(ctx, models.Account{
		UID:         uuid.NewString(),
		Email:       email,
		DisplayName: du.displayName(),
		DiscordID:   du.ID,
	})
}
