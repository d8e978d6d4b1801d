package configuration

import (
	"encoding/json"
	"os"
	"time"
)

type MongoConfig struct {
	Uri                     string `json:"uri"`
	Database                string `json:"database"`
	UsersCollection         string `json:"usersCollection"`
	ConversationsCollection string `json:"conversationsCollection"`
	MessagesCollection      string `json:"messagesCollection"`
	ChatMetaCollection      string `json:"chatMetaCollection"`
	SocketRoute             string `json:"socketRoute"`
}

type ServerConfig struct {
	AppPort    int `json:"app_port"`
	SocketPort int `json:"socket_port"`
}

type JWTConfig struct {
	Secret           string `json:"secret"`
	RefreshSecret    string `json:"refresh_secret"`
	AccessTTLMinutes int    `json:"access_ttl_minutes"`
	RefreshTTLHours  int    `json:"refresh_ttl_hours"`
}

type UploadConfig struct {
	Dir     string `json:"dir"`
	BaseURL string `json:"base_url"`
}

type Config struct {
	ChatDatabase   MongoConfig  `json:"mongo"`
	Server         ServerConfig `json:"server"`
	JWT            JWTConfig    `json:"jwt"`
	Upload         UploadConfig `json:"upload"`
	AllowedOrigins []string     `json:"allowed_origins"`
}

// AccessTTL returns the access token lifetime, defaulting to 15 minutes.
func (c *Config) AccessTTL() time.Duration {
	if c.JWT.AccessTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.JWT.AccessTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime, defaulting to 7 days.
func (c *Config) RefreshTTL() time.Duration {
	if c.JWT.RefreshTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.JWT.RefreshTTLHours) * time.Hour
}

func LoadConfig(config_path string) (*Config, error) {
	file, err := os.ReadFile(config_path)
	if err != nil {
		return nil, err
	}

	var config Config
	err = json.Unmarshal(file, &config)
	if err != nil {
		return nil, err
	}

	return &config, nil
}
