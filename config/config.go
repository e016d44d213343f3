/*
Copyright 2024 ZephTerm Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config provides configuration loading and management for the
// zephterm terminal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"zephterm/internal/serial"
)

// Config represents the complete terminal configuration
type Config struct {
	Serial   SerialConfig   `mapstructure:"serial" yaml:"serial"`
	Terminal TerminalConfig `mapstructure:"terminal" yaml:"terminal"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// SerialConfig holds the connection settings offered to the next Connect
type SerialConfig struct {
	Port            string   `mapstructure:"port" yaml:"port"`
	BaudRate        int      `mapstructure:"baud_rate" yaml:"baud_rate"`
	DataBits        int      `mapstructure:"data_bits" yaml:"data_bits"`
	StopBits        int      `mapstructure:"stop_bits" yaml:"stop_bits"`
	Parity          string   `mapstructure:"parity" yaml:"parity"`
	LineEnding      string   `mapstructure:"line_ending" yaml:"line_ending"`
	ReadTimeoutMs   int      `mapstructure:"read_timeout_ms" yaml:"read_timeout_ms"`
	Ports           []string `mapstructure:"ports" yaml:"ports"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns"`
}

// TerminalConfig holds display settings
type TerminalConfig struct {
	Scrollback int `mapstructure:"scrollback" yaml:"scrollback"`
}

// LoggingConfig holds application (not session) logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			BaudRate:      115200,
			DataBits:      8,
			StopBits:      1,
			Parity:        "none",
			LineEnding:    "crlf",
			ReadTimeoutMs: 100,
		},
		Terminal: TerminalConfig{
			Scrollback: 2000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ToPortConfig converts the serial section into a concrete
// serial.PortConfig for the connection manager.
func (s SerialConfig) ToPortConfig() (serial.PortConfig, error) {
	parity, err := serial.ParseParity(s.Parity)
	if err != nil {
		return serial.PortConfig{}, err
	}

	stopBits, err := serial.ParseStopBits(s.StopBits)
	if err != nil {
		return serial.PortConfig{}, err
	}

	lineEnding, err := serial.ParseLineEnding(s.LineEnding)
	if err != nil {
		return serial.PortConfig{}, err
	}

	return serial.PortConfig{
		Port:          s.Port,
		BaudRate:      s.BaudRate,
		DataBits:      s.DataBits,
		StopBits:      stopBits,
		Parity:        parity,
		LineEnding:    lineEnding,
		ReadTimeoutMs: s.ReadTimeoutMs,
	}, nil
}

// SetDefaults sets default values in viper
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("serial.baud_rate", defaults.Serial.BaudRate)
	viper.SetDefault("serial.data_bits", defaults.Serial.DataBits)
	viper.SetDefault("serial.stop_bits", defaults.Serial.StopBits)
	viper.SetDefault("serial.parity", defaults.Serial.Parity)
	viper.SetDefault("serial.line_ending", defaults.Serial.LineEnding)
	viper.SetDefault("serial.read_timeout_ms", defaults.Serial.ReadTimeoutMs)

	viper.SetDefault("terminal.scrollback", defaults.Terminal.Scrollback)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
}

// Load unmarshals the current viper state into a Config
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Terminal.Scrollback < 0 {
		return fmt.Errorf("scrollback cannot be negative")
	}

	if _, err := c.Serial.ToPortConfig(); err != nil {
		return fmt.Errorf("invalid serial settings: %w", err)
	}

	return nil
}

// UserConfigPath returns the user-specific configuration file path
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".zephterm", "config.yaml")
}

// InitViper initializes viper with default configuration paths
func InitViper(configFile string) error {
	SetDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, _ := os.UserHomeDir()
		if home != "" {
			viper.AddConfigPath(filepath.Join(home, ".zephterm"))
			viper.AddConfigPath(filepath.Join(home, ".config", "zephterm"))
		}
		viper.AddConfigPath(".")

		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("ZEPHTERM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults
	}

	return nil
}
