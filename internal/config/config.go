package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigPath is the default location for the config file
	DefaultConfigPath = "/etc/mountctl.conf"
	// DefaultFstabPath is the standard system mount table
	DefaultFstabPath = "/etc/fstab"
	// DefaultMountBin is the mount binary, resolved through PATH
	DefaultMountBin = "mount"
	// DefaultUmountBin is the umount binary, resolved through PATH
	DefaultUmountBin = "umount"
)

// Config holds the tool configuration
type Config struct {
	// Fstab is the mount table file to reconcile
	Fstab string `toml:"fstab"`
	// MountBin is the mount binary to invoke
	MountBin string `toml:"mount_bin"`
	// UmountBin is the umount binary to invoke
	UmountBin string `toml:"umount_bin"`
}

// Load loads configuration from a TOML file
// Returns an empty config if the file doesn't exist
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// Merge merges CLI flags into the config, with CLI flags taking precedence
// over config file values. Empty CLI values are ignored.
func (c *Config) Merge(fstab string) {
	if fstab != "" {
		c.Fstab = fstab
	}
}

// ApplyDefaults applies default values for any unset fields
func (c *Config) ApplyDefaults() {
	if c.Fstab == "" {
		c.Fstab = DefaultFstabPath
	}
	if c.MountBin == "" {
		c.MountBin = DefaultMountBin
	}
	if c.UmountBin == "" {
		c.UmountBin = DefaultUmountBin
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Fstab, "/") {
		return fmt.Errorf("fstab path must be absolute, got %q", c.Fstab)
	}
	return nil
}
