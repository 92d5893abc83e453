package main

import "github.com/kelseyhightower/envconfig"

type Config struct {
	ServerURL string `envconfig:"CHAT_SERVER_URL" default:"http://localhost:8080"`
	Email     string `envconfig:"CHAT_EMAIL" required:"true"`
	Password  string `envconfig:"CHAT_PASSWORD" required:"true"`

	// Register creates the account before signing in, for first runs.
	Register bool `envconfig:"CHAT_REGISTER" default:"false"`

	Colours  bool   `envconfig:"CHAT_COLOURS" default:"true"`
	LogLevel string `envconfig:"CHAT_LOG_LEVEL" default:"ERROR"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
