package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

type Config struct {
	TelegramBot TelegramBot
	Rotation    Rotation
	Storage     Storage
	Schedule    Schedule
	HTTP        HTTP
}

type TelegramBot struct {
	Token  string `envconfig:"TELEGRAM_TOKEN" required:"true"`
	ChatID int64  `envconfig:"CHAT_ID" required:"true"`
}

type Rotation struct {
	TeamSize          int    `envconfig:"TEAM_SIZE" default:"7"`
	RepeatWindow      int    `envconfig:"REPEAT_WINDOW" default:"1"`
	BlockFamilyRepeat bool   `envconfig:"BLOCK_FAMILY_REPEAT" default:"true"`
	Seed              uint64 `envconfig:"ROTATION_SEED"`
}

type Storage struct {
	Path string `envconfig:"STATE_PATH" default:"flagcoach.json"`
}

type Schedule struct {
	Timezone      string        `envconfig:"TIMEZONE" default:"America/Chicago"`
	GameDay       string        `envconfig:"GAMEDAY_CRON" default:"0 8 * * 6"`
	AutosaveEvery time.Duration `envconfig:"AUTOSAVE_EVERY" default:"10m"`
}

type HTTP struct {
	Addr string `envconfig:"HTTP_ADDR" default:":8080"`
}

func New() (*Config, error) {
	var c Config
	err := envconfig.Process("", &c)
	if err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Rotation.TeamSize < 1 {
		return fmt.Errorf("TEAM_SIZE must be at least 1, got %d", c.Rotation.TeamSize)
	}
	if c.Rotation.RepeatWindow < 0 {
		return fmt.Errorf("REPEAT_WINDOW must not be negative, got %d", c.Rotation.RepeatWindow)
	}
	if _, err := cron.ParseStandard(c.Schedule.GameDay); err != nil {
		return fmt.Errorf("invalid GAMEDAY_CRON %q: %w", c.Schedule.GameDay, err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Schedule.Timezone, err)
	}
	if c.Schedule.AutosaveEvery <= 0 {
		return fmt.Errorf("AUTOSAVE_EVERY must be positive, got %s", c.Schedule.AutosaveEvery)
	}
	return nil
}
