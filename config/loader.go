package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/tuplestream/logger"
)

// LoaderConfig holds optional overrides for LoadConfig.
type LoaderConfig struct {
	ConfigFile  string   // explicit config file; must exist when set
	EnvFile     string   // explicit .env file; must exist when set
	SearchPaths []string // directories searched for config.yml and .env
	EnvPrefix   string   // defaults to the upper-cased service name
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithSearchPaths replaces the directories searched when no explicit file is given.
func WithSearchPaths(dirs ...string) LoaderOption {
	return func(lc *LoaderConfig) { lc.SearchPaths = dirs }
}

// WithEnvPrefix sets the prefix of overriding environment variables.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// DefaultSearchPaths returns the directories searched for a service's files,
// most specific first.
func DefaultSearchPaths(serviceName string) []string {
	paths := []string{".", "./config", filepath.Join("./cmd", serviceName)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", serviceName))
	}
	return append(paths, filepath.Join("/etc", serviceName))
}

// LoadConfig fills cfg, a pointer to a struct with mapstructure tags.
//
// Values come from config.yml, then from a .env file, then from the
// environment: <PREFIX>_<KEY> with dots replaced by underscores, e.g.
// TUPLESTREAM_SERVER_PORT for server.port. Keys are discovered from cfg's
// tags, so variables override fields absent from the file too.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	lc := LoaderConfig{SearchPaths: DefaultSearchPaths(serviceName)}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.EnvPrefix == "" {
		lc.EnvPrefix = strings.ToUpper(strings.ReplaceAll(serviceName, "-", "_"))
	}

	configFile, err := resolve(lc.ConfigFile, lc.SearchPaths, "config.yml")
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	envFile, err := resolve(lc.EnvFile, lc.SearchPaths, ".env")
	if err != nil {
		return fmt.Errorf("env file: %w", err)
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read %s: %w", configFile, err)
		}
		logger.Debug("config file loaded", logger.Fields("file", configFile))
	}
	if envFile != "" {
		// Variables already set in the environment win over the file.
		if err := godotenv.Load(envFile); err != nil {
			logger.Warn("failed to load .env file", logger.Fields("file", envFile, logger.FieldError, err.Error()))
		}
	}

	v.SetEnvPrefix(lc.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range Keys(cfg) {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

// resolve returns explicit if it exists, or the first dir/name found.
// Nothing found is not an error unless explicit was given.
func resolve(explicit string, dirs []string, name string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}
	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// Keys lists the dotted viper keys of every leaf field of cfg, following
// mapstructure tags. Squashed structs contribute their keys unprefixed.
func Keys(cfg interface{}) []string {
	var keys []string
	collectKeys(reflect.TypeOf(cfg), "", &keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, squash := parseTag(f)
		if name == "-" {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		switch {
		case squash:
			collectKeys(ft, prefix, keys)
		case ft.Kind() == reflect.Func || ft.Kind() == reflect.Chan:
		case ft.Kind() == reflect.Struct && ft != durationType && ft != reflect.TypeOf(time.Time{}):
			collectKeys(ft, prefix+name+".", keys)
		default:
			*keys = append(*keys, prefix+name)
		}
	}
}

func parseTag(f reflect.StructField) (name string, squash bool) {
	tag := f.Tag.Get("mapstructure")
	name, rest, _ := strings.Cut(tag, ",")
	squash = strings.Contains(rest, "squash")
	if name == "" {
		name = strings.ToLower(f.Name)
	}
	return name, squash
}
