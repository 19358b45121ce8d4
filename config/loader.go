package config

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/kbukum/mobilekit/errors"
	"github.com/kbukum/mobilekit/logger"
)

// ProfileEnv names the environment variable that selects a settings profile.
// With PROFILE=ios the loader prefers settings.ios.yml and .env.ios.
const ProfileEnv = "PROFILE"

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	ReadFile(path string) ([]byte, error)
	LoadEnv(path string) error
	Getwd() (string, error)
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

func (rfs *RealFileSystem) Getwd() (string, error) {
	return os.Getwd()
}

// Resolver handles finding the settings and env files.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved settings and env file paths.
type ResolvedFiles struct {
	SettingsFile string
	EnvFile      string
}

// searchDirs are the directories searched for settings and env files,
// relative to the working directory of the test binary.
var searchDirs = []string{".", "./config", "./resources", "..", "../config", "../resources", "../.."}

// ResolveFiles finds the settings and env files for a profile.
// Returns explicit paths if provided, otherwise searches for them.
func (cr *Resolver) ResolveFiles(opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		SettingsFile: opts.SettingsFile,
		EnvFile:      opts.EnvFile,
	}

	if resolved.SettingsFile == "" {
		resolved.SettingsFile = cr.find(candidateNames("settings", ".yml", opts.Profile))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.find(candidateNames(".env", "", opts.Profile))
	}

	return resolved
}

// find returns the first existing file, trying every name in a directory
// before moving to the next one.
func (cr *Resolver) find(names []string) string {
	for _, dir := range searchDirs {
		for _, name := range names {
			path := dir + "/" + name
			if cr.FileSystem.Exists(path) {
				return path
			}
		}
	}
	return ""
}

// candidateNames lists the profile file before the default one:
// settings.ios.yml, settings.yml or .env.ios, .env.
func candidateNames(base, ext, profile string) []string {
	names := make([]string, 0, 2)
	if profile != "" {
		names = append(names, base+"."+profile+ext)
	}
	return append(names, base+ext)
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem   FileSystem
	SettingsFile string // Direct settings file path (optional)
	EnvFile      string // Direct env file path (optional)
	Profile      string // Settings profile; defaults to $PROFILE
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithSettingsFile sets an explicit settings file path.
func WithSettingsFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.SettingsFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithProfile selects a settings profile.
func WithProfile(profile string) LoaderOption {
	return func(lc *LoaderConfig) { lc.Profile = profile }
}

// Load reads the settings of a test run. It searches for settings.yml and
// .env in standard locations, binds environment variables, applies
// defaults and validates the result.
func Load(opts ...LoaderOption) (*Settings, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}
	if lc.Profile == "" {
		lc.Profile = os.Getenv(ProfileEnv)
	}

	if lc.SettingsFile != "" && !lc.FileSystem.Exists(lc.SettingsFile) {
		return nil, errors.InvalidConfig(fmt.Sprintf("settings file %s not found", lc.SettingsFile))
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(lc)

	settings := &Settings{}
	if err := loadFromResolvedFiles(settings, files, lc.FileSystem); err != nil {
		return nil, err
	}

	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("settings loaded", logger.Fields(
		"settings_file", files.SettingsFile,
		"env_file", files.EnvFile,
		"profile", lc.Profile,
		"summary", settings.String(),
	))
	return settings, nil
}

// loadFromResolvedFiles loads settings from specific files.
func loadFromResolvedFiles(settings *Settings, files ResolvedFiles, fs FileSystem) error {
	v := viper.New()

	// 1. Load YAML settings first (base configuration)
	if files.SettingsFile != "" {
		v.SetConfigFile(files.SettingsFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.InvalidConfig(fmt.Sprintf("read settings file %s", files.SettingsFile)).WithCause(err)
		}
	}

	// 2. Enable automatic environment variable reading
	v.AutomaticEnv()
	envKeys := autoBindEnvVars(v)

	// 3. Load .env file
	if files.EnvFile != "" && fs.Exists(files.EnvFile) {
		if err := fs.LoadEnv(files.EnvFile); err != nil {
			logger.Warn("failed to load .env file", logger.MergeWithError(logger.Fields("env_file", files.EnvFile), err))
		} else {
			// Re-bind env vars after loading .env to pick up new variables
			maps.Copy(envKeys, autoBindEnvVars(v))
		}
	}

	// 4. Unmarshal into the settings struct
	if err := v.Unmarshal(settings); err != nil {
		return errors.InvalidConfig("decode settings").WithCause(err)
	}

	// 5. Restore capability key case, which viper folds to lower case
	if files.SettingsFile != "" {
		if err := overlayCapabilities(settings, files.SettingsFile, fs, envKeys); err != nil {
			return err
		}
	}

	return nil
}

// capabilityFile mirrors the driver section of the settings file.
type capabilityFile struct {
	Driver struct {
		Android struct {
			Capabilities map[string]any `yaml:"capabilities"`
		} `yaml:"android"`
		IOS struct {
			Capabilities map[string]any `yaml:"capabilities"`
		} `yaml:"ios"`
	} `yaml:"driver"`
}

// overlayCapabilities restores the case of the capability keys written in
// the settings file, such as "appium:automationName". Values bound from
// environment variables win over the file; capabilities set only through
// environment variables are kept, lower-cased.
func overlayCapabilities(settings *Settings, path string, fs FileSystem, envKeys map[string]bool) error {
	data, err := fs.ReadFile(path)
	if err != nil {
		return errors.InvalidConfig(fmt.Sprintf("read settings file %s", path)).WithCause(err)
	}

	var raw capabilityFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return errors.InvalidConfig(fmt.Sprintf("parse settings file %s", path)).WithCause(err)
	}

	settings.Driver.Android.Capabilities = mergeCapabilities(
		settings.Driver.Android.Capabilities, raw.Driver.Android.Capabilities, "driver.android.capabilities.", envKeys)
	settings.Driver.IOS.Capabilities = mergeCapabilities(
		settings.Driver.IOS.Capabilities, raw.Driver.IOS.Capabilities, "driver.ios.capabilities.", envKeys)
	return nil
}

// mergeCapabilities replaces each lower-cased key of decoded with the
// original-case key from file. prefix is the settings path of the map.
func mergeCapabilities(decoded, file map[string]any, prefix string, envKeys map[string]bool) map[string]any {
	if len(file) == 0 {
		return decoded
	}
	merged := make(map[string]any, len(decoded)+len(file))
	maps.Copy(merged, decoded)
	for key, value := range file {
		lower := strings.ToLower(key)
		envValue, decodedOK := decoded[lower]
		delete(merged, lower)
		if decodedOK && envKeys[prefix+lower] {
			merged[key] = envValue
			continue
		}
		merged[key] = value
	}
	return merged
}

// autoBindEnvVars automatically binds environment variables to Viper
// by converting UPPER_CASE_WITH_UNDERSCORES to multiple possible nested key formats.
// It returns the keys it set.
func autoBindEnvVars(v *viper.Viper) map[string]bool {
	bound := make(map[string]bool)
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}

		key := pair[0]
		value := pair[1]

		variants := generateEnvKeyVariants(key)
		for _, variant := range variants {
			if v.IsSet(variant) || isSettingsKey(variant) {
				v.Set(variant, value)
				bound[variant] = true
			}
		}
	}
	return bound
}

// isSettingsKey reports whether key falls under one of the settings sections.
func isSettingsKey(key string) bool {
	section, _, _ := strings.Cut(key, ".")
	switch section {
	case "name", "application", "appium", "driver", "timeouts", "retry", "logging", "observability":
		return true
	}
	return false
}

// generateEnvKeyVariants creates all possible key variants for environment variable binding.
// Examples:
//
//	APPLICATION_PLATFORM -> [application_platform, application.platform]
//	APPLICATION_REMOTE_CONNECTION_URL -> [..., application.remote_connection_url, ...]
//	DRIVER_ANDROID_APP_ID -> [..., driver.android.app_id, ...]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")

	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}

	// Generate progressive nesting patterns
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		suffix := strings.Join(parts[i:], "_")
		variants = append(variants, prefix+"."+suffix)
	}

	if len(parts) >= 3 {
		prefix := strings.Join(parts[:len(parts)-1], ".")
		lastPart := parts[len(parts)-1]
		variants = append(variants, prefix+"."+lastPart)
	}

	return removeDuplicates(variants)
}

// removeDuplicates removes duplicate strings from a slice.
func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}
