// Package config manages YAML-based configuration, CLI flags, and multi-folder settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Folder is a browsable root: a local directory, or a git ref inside a repository.
type Folder struct {
	Path    string   `yaml:"path" json:"path"`
	Alias   string   `yaml:"alias" json:"alias"`
	GitRef  string   `yaml:"git_ref,omitempty" json:"git_ref,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Config holds all configuration options for dotwalk
type Config struct {
	// Legacy single path (for backward compatibility)
	Path string `yaml:"path,omitempty"`

	Folders []Folder `yaml:"folders,omitempty" json:"folders"`

	Port int `yaml:"port"`
	// ShowDot is the server-wide default for requests that don't pass showDot.
	ShowDot bool `yaml:"show_dot"`
	Watch   bool `yaml:"watch"`

	Exclude        []string `yaml:"exclude"`
	SkipUnreadable bool     `yaml:"skip_unreadable"`
	MaxResults     int      `yaml:"max_results"`
	MaxDepth       int      `yaml:"max_depth"`
	Extensions     []string `yaml:"extensions"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Internal: path to config file for saving
	configPath string
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Path:       ".",
		Port:       8080,
		ShowDot:    false,
		Watch:      true,
		Exclude:    []string{"node_modules"},
		MaxResults: 1000,
		Extensions: []string{".md", ".markdown"},
		LogLevel:   "info",
		LogFormat:  "console",
	}
}

// GetConfigDir returns the config directory path
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/dotwalk"
	}
	return filepath.Join(home, ".config", "dotwalk")
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// RegisterFlags defines the flags Load understands on the given flag set.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Configuration file path")
	flags.StringP("path", "p", "", "Root directory to serve (replaces configured folders)")
	flags.Int("port", 0, "HTTP server port")
	flags.Bool("show-dot", false, "Include dot-entries (names starting with '.') by default")
	flags.Bool("watch", true, "Enable file watching")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (console, json)")
}

// Load loads configuration from file and command line flags. Flags registered
// with RegisterFlags override the file only when explicitly set.
func Load(flags *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()

	configFile, _ := flags.GetString("config")

	// Determine config file path
	var cfgPath string
	if configFile != "" {
		cfgPath = configFile
	} else {
		// Try ~/.config/dotwalk/config.yaml first
		globalConfig := GetConfigPath()
		if _, err := os.Stat(globalConfig); err == nil {
			cfgPath = globalConfig
		} else if _, err := os.Stat("dotwalk.yaml"); err == nil {
			cfgPath = "dotwalk.yaml"
		}
	}

	if cfgPath != "" {
		if err := cfg.loadFromFile(cfgPath); err != nil && configFile != "" {
			// Only return error if user explicitly specified config file
			return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
		}
		cfg.configPath = cfgPath
	} else {
		cfg.configPath = GetConfigPath()
	}

	if flags.Changed("path") {
		cfg.Path, _ = flags.GetString("path")
		// CLI --path overrides saved folders - use CLI path exclusively
		cfg.Folders = nil
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("show-dot") {
		cfg.ShowDot, _ = flags.GetBool("show-dot")
	}
	if flags.Changed("watch") {
		cfg.Watch, _ = flags.GetBool("watch")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}

	cfg.migrateLegacyPath()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail at request time.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxResults < 0 {
		return fmt.Errorf("max_results must not be negative")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative")
	}
	for _, p := range c.Exclude {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
	}
	seen := make(map[string]bool)
	for _, f := range c.Folders {
		if seen[f.Alias] {
			return fmt.Errorf("duplicate folder alias %q", f.Alias)
		}
		seen[f.Alias] = true
	}
	return nil
}

// migrateLegacyPath converts single Path to Folders if Folders is empty
func (c *Config) migrateLegacyPath() {
	if len(c.Folders) == 0 && c.Path != "" {
		absPath, err := filepath.Abs(c.Path)
		if err != nil {
			absPath = c.Path
		}
		c.Folders = []Folder{{
			Path:  absPath,
			Alias: filepath.Base(absPath),
		}}
	}

	for i := range c.Folders {
		absPath, err := filepath.Abs(c.Folders[i].Path)
		if err == nil {
			c.Folders[i].Path = absPath
		}
		if c.Folders[i].Alias == "" {
			c.Folders[i].Alias = defaultAlias(c.Folders[i].Path, c.Folders[i].GitRef)
		}
	}
}

func defaultAlias(absPath, gitRef string) string {
	alias := filepath.Base(absPath)
	if gitRef != "" {
		alias = alias + "@" + strings.ReplaceAll(gitRef, "/", "-")
	}
	return alias
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Save saves the current configuration to the config file
func (c *Config) Save() error {
	configDir := filepath.Dir(c.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	// Folders supersede the legacy path once saved.
	saveConfig := *c
	saveConfig.Path = ""

	data, err := yaml.Marshal(&saveConfig)
	if err != nil {
		return err
	}

	return os.WriteFile(c.configPath, data, 0644)
}

// AddFolder adds a new folder with the given path, alias, git ref and excludes and
// returns the stored folder.
func (c *Config) AddFolder(path, alias, gitRef string, exclude []string) (Folder, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Folder{}, err
	}

	for _, f := range c.Folders {
		if f.Path == absPath && f.GitRef == gitRef {
			return f, nil // Already exists
		}
	}

	if alias == "" {
		alias = defaultAlias(absPath, gitRef)
	}
	if _, ok := c.FolderByAlias(alias); ok {
		return Folder{}, fmt.Errorf("alias %q already in use", alias)
	}

	f := Folder{
		Path:    absPath,
		Alias:   alias,
		GitRef:  gitRef,
		Exclude: exclude,
	}
	c.Folders = append(c.Folders, f)
	return f, nil
}

// RemoveFolder removes the folder with the given alias. It reports whether a
// folder was removed.
func (c *Config) RemoveFolder(alias string) bool {
	for i, f := range c.Folders {
		if f.Alias == alias {
			c.Folders = append(c.Folders[:i], c.Folders[i+1:]...)
			return true
		}
	}
	return false
}

// FolderByAlias looks up a folder by its alias.
func (c *Config) FolderByAlias(alias string) (Folder, bool) {
	for _, f := range c.Folders {
		if f.Alias == alias {
			return f, true
		}
	}
	return Folder{}, false
}

// ExcludesFor merges global excludes with the folder's own patterns.
func (c *Config) ExcludesFor(f Folder) []string {
	merged := append([]string{}, c.Exclude...)
	return append(merged, f.Exclude...)
}

// GetConfigFilePath returns the path to the config file
func (c *Config) GetConfigFilePath() string {
	return c.configPath
}

// SetConfigFilePath overrides where Save writes.
func (c *Config) SetConfigFilePath(path string) {
	c.configPath = path
}

// IsMarkdownFile checks if a file has a markdown extension
func (c *Config) IsMarkdownFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
