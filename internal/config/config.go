// Package config loads the application configuration from YAML with
// struct-tag defaults applied first, so a missing file or a partial file
// still yields a complete configuration.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Server  ServerConfig  `yaml:"server"`
	Editor  EditorConfig  `yaml:"editor"`
	Backend BackendConfig `yaml:"backend"`
	Media   MediaConfig   `yaml:"media"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

type SiteConfig struct {
	Name string `yaml:"name" default:"Inkwell"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12700"`
}

// EditorConfig holds the tunables of the live editing session: how often
// drafts are autosaved upstream, how long selection events are coalesced
// before the formatting menu is re-evaluated, and the upload limits.
type EditorConfig struct {
	AutosaveIntervalSeconds int `yaml:"autosave_interval_seconds" default:"10"`
	SelectionDebounceMillis int `yaml:"selection_debounce_millis" default:"120"`
	MaxUploadBytes          int `yaml:"max_upload_bytes" default:"5242880"`
}

type BackendConfig struct {
	BaseURL        string `yaml:"base_url" default:"http://localhost:12800"`
	TimeoutSeconds int    `yaml:"timeout_seconds" default:"15"`
}

type MediaConfig struct {
	Bucket    string `yaml:"bucket" default:"inkwell-media"`
	PublicURL string `yaml:"public_url" default:""`
}

type StorageConfig struct {
	Path        string `yaml:"path" default:"./inkwell.db"`
	Compression string `yaml:"compression" default:"zstd"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

// AutosaveInterval returns the single authoritative autosave interval.
func (c *EditorConfig) AutosaveInterval() time.Duration {
	return time.Duration(c.AutosaveIntervalSeconds) * time.Second
}

func (c *EditorConfig) SelectionDebounce() time.Duration {
	return time.Duration(c.SelectionDebounceMillis) * time.Millisecond
}

func (c *BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

var AppConfig *Config

func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	// Try to read and parse the config file
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		AppConfig = config
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	AppConfig = config
	return nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
