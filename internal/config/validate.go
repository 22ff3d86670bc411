package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// ScheduleParser parses runner.schedule expressions (standard five-field cron).
var ScheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateRunner(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateProfiles()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q must be host:port: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageFile, StorageSQLite:
		return nil
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", StorageFile, StorageSQLite, c.Storage.Backend)
	}
}

func (c *Config) validateEngine() error {
	if c.Engine.GenerateCommand == "" {
		return errors.New("engine.generate_command must be set")
	}
	if c.Engine.UploadCommand == "" {
		return errors.New("engine.upload_command must be set")
	}
	return nil
}

func (c *Config) validateRunner() error {
	if c.Runner.MaxRetries < 0 {
		return errors.New("runner.max_retries must be >= 0")
	}
	if schedule := strings.TrimSpace(c.Runner.Schedule); schedule != "" {
		if _, err := ScheduleParser.Parse(schedule); err != nil {
			return fmt.Errorf("runner.schedule %q: %w", schedule, err)
		}
	}
	return nil
}

func (c *Config) validateWatch() error {
	if !c.Watch.Enabled {
		return nil
	}
	if c.Watch.Dir == "" {
		return errors.New("watch.dir must be set when watch.enabled is true")
	}
	if c.Watch.Profile != "" {
		if _, ok := c.Profiles[c.Watch.Profile]; !ok {
			return fmt.Errorf("watch.profile %q is not a configured profile", c.Watch.Profile)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
}

func (c *Config) validateProfiles() error {
	for _, name := range c.ProfileNames() {
		params := c.Profiles[name]
		// Profiles are partial: a placeholder file satisfies the required field check.
		if params.File == "" {
			params.File = "profile"
		}
		if err := params.Validate(); err != nil {
			return fmt.Errorf("profiles.%s: %w", name, err)
		}
	}
	return nil
}
