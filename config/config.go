package config

import (
	"fmt"
	"time"
)

const (
	// DefaultMessagePollInterval paces the in-room message/member refresh.
	DefaultMessagePollInterval = time.Second
	// DefaultRoomPollInterval paces the slower room-directory refresh.
	DefaultRoomPollInterval = 3 * time.Second
)

type Config struct {
	MessagePollInterval time.Duration
	RoomPollInterval    time.Duration
	// MessageRetention caps how many messages a room's log keeps; zero
	// keeps everything.
	MessageRetention int
}

func DefaultConfig() *Config {
	return &Config{
		MessagePollInterval: DefaultMessagePollInterval,
		RoomPollInterval:    DefaultRoomPollInterval,
	}
}

func NewConfig(messagePollInterval, roomPollInterval time.Duration, messageRetention int) (*Config, error) {
	if messagePollInterval <= 0 {
		return nil, fmt.Errorf("message poll interval must be positive")
	}
	if roomPollInterval <= 0 {
		return nil, fmt.Errorf("room poll interval must be positive")
	}
	if messageRetention < 0 {
		return nil, fmt.Errorf("message retention cannot be negative")
	}

	return &Config{
		MessagePollInterval: messagePollInterval,
		RoomPollInterval:    roomPollInterval,
		MessageRetention:    messageRetention,
	}, nil
}
