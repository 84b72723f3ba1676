package config

import (
	"fmt"
	"time"
)

type Config struct {
	ServerAddr     string
	AllowedOrigins []string
	StaticDir      string
	RoomRetention  time.Duration
	SweepInterval  time.Duration
}

func NewConfig(serverAddr string, allowedOrigins []string, staticDir string, roomRetention, sweepInterval time.Duration) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if roomRetention <= 0 {
		return nil, fmt.Errorf("room retention must be positive")
	}
	if sweepInterval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive")
	}

	return &Config{
		ServerAddr:     serverAddr,
		AllowedOrigins: allowedOrigins,
		StaticDir:      staticDir,
		RoomRetention:  roomRetention,
		SweepInterval:  sweepInterval,
	}, nil
}
