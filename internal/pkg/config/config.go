// Package config loads process configuration from environment variables
// into a tagged struct, via the same reflect-over-`env`-tag approach as a
// one-shot Getenv call per field, with per-field defaults supplied by the
// caller's zero-value struct literal.
package config

import (
	"errors"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// GetenvOrDefault returns os.Getenv(key), or defaultValue if unset/blank.
func GetenvOrDefault(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}

	return defaultValue
}

// GetenvBoolOrDefault parses os.Getenv(key) as a bool, or returns
// defaultValue if unset or unparseable.
func GetenvBoolOrDefault(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}

	return v
}

// GetenvIntOrDefault parses os.Getenv(key) as an int64, or returns
// defaultValue if unset or unparseable.
func GetenvIntOrDefault(key string, defaultValue int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return defaultValue
	}

	return v
}

// LoadDotEnv loads a local .env file into the process environment. A
// missing file is not an error — production deployments set real env vars
// instead.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// FromEnv populates the fields of the struct pointed to by s from their
// `env:"VAR_NAME"` tags, using each field's current value as the default
// when the variable is unset — callers set defaults on the struct literal
// before calling FromEnv. Supported kinds: string, bool, every int width.
// s must be a non-nil pointer to a struct.
func FromEnv(s any) error {
	v := reflect.ValueOf(s)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return errors.New("config.FromEnv: s must be a non-nil pointer")
	}

	t := v.Elem().Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		tag, ok := field.Tag.Lookup("env")
		if !ok {
			continue
		}

		name := strings.Split(tag, ",")[0]

		fv := v.Elem().Field(i)
		if !fv.CanSet() {
			continue
		}

		switch fv.Kind() {
		case reflect.Bool:
			fv.SetBool(GetenvBoolOrDefault(name, fv.Bool()))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fv.SetInt(GetenvIntOrDefault(name, fv.Int()))
		default:
			fv.SetString(GetenvOrDefault(name, fv.String()))
		}
	}

	return nil
}
