package config

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/golang/glog"
	"github.com/spf13/viper"
)

type Config struct {
	Port                          string   `mapstructure:"PORT"`
	DatabasePath                  string   `mapstructure:"DATABASE_PATH"`
	StoragePath                   string   `mapstructure:"STORAGE_PATH"`
	PublicURL                     string   `mapstructure:"PUBLIC_URL"`
	JWTSecret                     string   `mapstructure:"JWT_SECRET"`
	DiscordClientID               string   `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret           string   `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL            string   `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordGuildID                string   `mapstructure:"DISCORD_GUILD_ID"`
	DiscordBotToken               string   `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string   `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	FrontendURL                   string   `mapstructure:"FRONTEND_URL"`
	UploaderEmails                []string `mapstructure:"UPLOADER_EMAILS"`
	EnableCORS                    bool     `mapstructure:"ENABLE_CORS"`
}

// DefaultUploaderEmails are the association accounts allowed to publish events.
var DefaultUploaderEmails = []string{
	"csea@gmail.com",
	"ieee@gmail.com",
	"ie@gmail.com",
	"csi@gmail.com",
	"glugot@gmail.com",
}

func LoadConfig() *Config {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_PATH", "campus.db")
	viper.SetDefault("STORAGE_PATH", "storage")
	viper.SetDefault("PUBLIC_URL", "http://127.0.0.1:8080")
	viper.SetDefault("DISCORD_REDIRECT_URL", "http://127.0.0.1:8080/auth/discord/callback")
	viper.SetDefault("FRONTEND_URL", "http://127.0.0.1:3000/midpage")
	viper.SetDefault("UPLOADER_EMAILS", DefaultUploaderEmails)

	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("DISCORD_CLIENT_ID")
	viper.BindEnv("DISCORD_CLIENT_SECRET")
	viper.BindEnv("DISCORD_GUILD_ID")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")
	viper.BindEnv("FRONTEND_URL")
	viper.BindEnv("UPLOADER_EMAILS")
	viper.BindEnv("ENABLE_CORS")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		glog.Fatalf("Unable to decode into struct, %v", err)
	}

	if config.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			glog.Fatalf("JWT_SECRET is not set and no random secret could be generated: %v", err)
		}
		config.JWTSecret = secret
		glog.Warningf("JWT_SECRET is not set; using a random secret, sessions will not survive a restart")
	}

	return &config
}

// IsUploader reports whether email belongs to an account allowed to publish events.
func (c *Config) IsUploader(email string) bool {
	for _, e := range c.UploaderEmails {
		if e == email {
			return true
		}
	}
	return false
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
