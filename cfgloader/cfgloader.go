// Package cfgloader provides a simple way to load and validate configuration
// at the start of an application.
//
// Configuration is read from a per-environment YAML file
// (./config/${ENVIRONMENT}.yaml by default, overridable with CONFIG_PATH),
// environment variables inside the file are expanded, defaults from `default`
// struct tags are applied, and the result is validated with
// go-playground/validator.
package cfgloader

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/datakit-io/datakit/logger"
	"github.com/datakit-io/datakit/mask"
)

// Recognized values for the ENVIRONMENT variable.
const (
	EnvProduction = "production"
	EnvStaging    = "staging"
	EnvDev        = "dev"
	EnvLocal      = "local"
	EnvTest       = "test"
)

const codeInvalidConfig = "INVALID_CONFIG"

// Load reads, defaults, and validates configuration of type T.
//
// The configuration struct should use `yaml` tags to map fields, `default`
// tags for fallback values, and `validate` tags for validation rules.
//
// Example:
//
//	type Config struct {
//	    Host     string `yaml:"host" validate:"required"`
//	    Port     int    `yaml:"port" default:"8080"`
//	    LogLevel string `yaml:"log_level" default:"info"`
//	}
func Load[T any](opts ...Option) (T, error) {
	var config T

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if reflect.ValueOf(config).Kind() == reflect.Ptr {
		return config, errx.New("cfgloader: type parameter must not be a pointer")
	}

	_ = godotenv.Load()

	path := o.Path
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		env, err := environment()
		if err != nil {
			return config, err
		}
		path = fmt.Sprintf("./config/%s.yaml", env)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
	}

	data = []byte(os.ExpandEnv(string(data)))

	if err = yaml.Unmarshal(data, &config); err != nil {
		return config, errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
	}

	if err = defaults.Set(&config); err != nil {
		return config, errx.Wrap(err)
	}

	if err = validate(&config); err != nil {
		return config, err
	}

	logger.Named("cfgloader").
		With("path", path).
		With("config", mask.Fields(config)).
		Debug("configuration loaded")

	return config, nil
}

// MustLoad is like Load but terminates the process on failure.
// Intended for use in main functions where a broken config is unrecoverable.
func MustLoad[T any](opts ...Option) T {
	config, err := Load[T](opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[cfgloader]: %v\n", err)
		os.Exit(1)
	}
	return config
}

func environment() (string, error) {
	env := os.Getenv("ENVIRONMENT")
	valid := []string{EnvProduction, EnvStaging, EnvDev, EnvLocal, EnvTest}
	if !slices.Contains(valid, env) {
		return "", errx.New(
			"cfgloader: ENVIRONMENT env variable is not set or invalid",
			errx.WithDetails(errx.D{"choices": strings.Join(valid, ", ")}),
		)
	}
	return env, nil
}

func validate(config any) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.Struct(config)
	if err == nil {
		return nil
	}

	failed := make([]string, 0)
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, fe := range errs {
			tag := fe.Tag()
			if fe.Param() != "" {
				tag += "=" + fe.Param()
			}
			failed = append(failed, fmt.Sprintf("%s: %s", fe.Namespace(), tag))
		}
	}

	return errx.New(
		"cfgloader: config validation failed",
		errx.WithCode(codeInvalidConfig),
		errx.WithDetails(errx.D{"fields": strings.Join(failed, ", ")}),
	)
}
