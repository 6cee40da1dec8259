package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// DefaultPath is where the Nakama module looks for the table configuration.
const DefaultPath = "data/table_config.json"

// Env keys read from the Nakama runtime environment (or a .env file in the
// simulator). They override values from the JSON file.
const (
	EnvGroupRadius        = "cardtable_group_radius"
	EnvDeckSearchRadius   = "cardtable_deck_search_radius"
	EnvAllowSpectators    = "cardtable_allow_spectators"
	EnvTickRate           = "cardtable_tick_rate"
	EnvTicketSecret       = "cardtable_ticket_secret"
	EnvMaxDeckSize        = "cardtable_max_deck_size"
	EnvWaitTimeoutSeconds = "cardtable_wait_timeout_seconds"
	EnvLogLevel           = "cardtable_log_level"
)

// SpawnPoint is where resource tokens appear for a seat.
type SpawnPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type TableConfig struct {
	GroupRadius      float64 `json:"group_radius"`
	DeckSearchRadius float64 `json:"deck_search_radius"`
	CardWidth        float64 `json:"card_width"`
	CardHeight       float64 `json:"card_height"`
	// SpawnYOffset nudges cards played from hand so they land above the drop point.
	SpawnYOffset      float64       `json:"spawn_y_offset"`
	DefaultStackIndex int           `json:"default_stack_index"`
	StartingHealth    int           `json:"starting_health"`
	ResourceSpawns    [2]SpawnPoint `json:"resource_spawns"`
	AllowSpectators   bool          `json:"allow_spectators"`
	TickRate          int           `json:"tick_rate"`
	MaxDeckSize       int           `json:"max_deck_size"`
	// WaitTimeoutSeconds bounds how long a client waits for an entity to replicate.
	WaitTimeoutSeconds int    `json:"wait_timeout_seconds"`
	TicketSecret       string `json:"ticket_secret"`
	LogLevel           string `json:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() TableConfig {
	return TableConfig{
		GroupRadius:        1.0,
		DeckSearchRadius:   5.0,
		CardWidth:          1.75,
		CardHeight:         2.5,
		SpawnYOffset:       0.5,
		DefaultStackIndex:  30,
		StartingHealth:     30,
		ResourceSpawns:     [2]SpawnPoint{{X: -6, Y: -4}, {X: 6, Y: 4}},
		AllowSpectators:    true,
		TickRate:           10,
		MaxDeckSize:        200,
		WaitTimeoutSeconds: 5,
		LogLevel:           "info",
	}
}

var (
	cfg      *TableConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadTableConfig loads the table configuration from the given path. Fields
// missing from the file keep their default values.
func LoadTableConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read table config: %w", err)
			return
		}

		c := Default()
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal table config: %w", err)
			return
		}
		if err := c.Validate(); err != nil {
			loadErr = err
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetTableConfig returns a copy of the loaded configuration, or the defaults
// when nothing was loaded.
func GetTableConfig() TableConfig {
	if cfg == nil {
		return Default()
	}
	return *cfg
}

// ApplyEnv overrides fields from runtime env values. Unparseable values are
// reported and leave the field untouched.
func (c *TableConfig) ApplyEnv(env map[string]string) error {
	var errs []error
	float := func(key string, dst *float64) {
		if v, ok := env[key]; ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := env[key]; ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	float(EnvGroupRadius, &c.GroupRadius)
	float(EnvDeckSearchRadius, &c.DeckSearchRadius)
	integer(EnvTickRate, &c.TickRate)
	integer(EnvMaxDeckSize, &c.MaxDeckSize)
	integer(EnvWaitTimeoutSeconds, &c.WaitTimeoutSeconds)
	if v, ok := env[EnvAllowSpectators]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvAllowSpectators, err))
		} else {
			c.AllowSpectators = b
		}
	}
	if v := env[EnvTicketSecret]; v != "" {
		c.TicketSecret = v
	}
	if v := env[EnvLogLevel]; v != "" {
		c.LogLevel = v
	}
	return errors.Join(errs...)
}

// Validate rejects configurations the table cannot run with.
func (c TableConfig) Validate() error {
	switch {
	case c.GroupRadius <= 0:
		return fmt.Errorf("group_radius must be positive, got %v", c.GroupRadius)
	case c.DeckSearchRadius <= 0:
		return fmt.Errorf("deck_search_radius must be positive, got %v", c.DeckSearchRadius)
	case c.CardWidth <= 0 || c.CardHeight <= 0:
		return fmt.Errorf("card size must be positive, got %vx%v", c.CardWidth, c.CardHeight)
	case c.TickRate < 1 || c.TickRate > 60:
		return fmt.Errorf("tick_rate must be within 1..60, got %d", c.TickRate)
	case c.MaxDeckSize < 1:
		return fmt.Errorf("max_deck_size must be positive, got %d", c.MaxDeckSize)
	case c.WaitTimeoutSeconds < 1:
		return fmt.Errorf("wait_timeout_seconds must be positive, got %d", c.WaitTimeoutSeconds)
	}
	return nil
}
