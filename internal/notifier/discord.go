package notifier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/campus-portal/internal/config"
	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/gdg-garage/campus-portal/internal/views"
	"github.com/golang/glog"
)

type Notifier interface {
	NotifyEventCreated(event models.Event) error
	NotifyRegistration(event models.Event, registration models.Registration) error
}

// MessageSender is the part of *discordgo.Session the notifier uses.
type MessageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordNotifier struct {
	session   MessageSender
	channelID string
}

// NewDiscordNotifier creates a bot session from cfg. Messages go through the
// REST API, so no gateway connection is opened.
func NewDiscordNotifier(cfg *config.Config) (*DiscordNotifier, error) {
	if cfg.DiscordBotToken == "" {
		return nil, errors.New("DISCORD_BOT_TOKEN is not set")
	}
	if cfg.DiscordNotificationsChannelID == "" {
		return nil, errors.New("DISCORD_NOTIFICATIONS_CHANNEL_ID is not set")
	}
	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return NewSenderNotifier(session, cfg.DiscordNotificationsChannelID), nil
}

func NewSenderNotifier(session MessageSender, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

func (n *DiscordNotifier) send(message string) error {
	if n.session == nil {
		return errors.New("discord session is nil")
	}
	if n.channelID == "" {
		return errors.New("discord channel ID is empty")
	}
	if _, err := n.session.ChannelMessageSend(n.channelID, message); err != nil {
		glog.Warningf("Failed to send discord message: %v", err)
		return err
	}
	return nil
}

func (n *DiscordNotifier) NotifyEventCreated(event models.Event) error {
	var b strings.Builder
	fmt.Fprintf(&b, "📣 **New Event: %s**\n", event.Name)
	fmt.Fprintf(&b, "**By:** %s (%s)\n", event.Association, event.Department)
	fmt.Fprintf(&b, "**When:** %s at %s\n", views.DisplayDate(event.Date), event.Time)
	fmt.Fprintf(&b, "**Where:** %s", event.Venue)
	if preview, _ := views.Preview(event.Description); preview != "" {
		fmt.Fprintf(&b, "\n%s", preview)
	}
	return n.send(b.String())
}

func (n *DiscordNotifier) NotifyRegistration(event models.Event, registration models.Registration) error {
	message := fmt.Sprintf("🎉 **Registration**\n**Event:** %s\n**User:** %s (%s)",
		event.Name,
		registration.UserName,
		registration.UserEmail,
	)
	return n.send(message)
}
