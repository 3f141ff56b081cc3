package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate applies struct-tag validation to cfg, registering the same kind
// of custom rules as the teacher's ValidateConfig (existence checks,
// enumerated log level/format) scoped down to what this config actually
// needs.
func Validate(cfg *Config) error {
	validate := validator.New()

	_ = validate.RegisterValidation("dirpath", func(fl validator.FieldLevel) bool {
		dir := fl.Field().String()
		if dir == "" {
			return true
		}
		info, err := os.Stat(dir)
		return err == nil && info.IsDir()
	})

	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "debug", "info", "warn", "error", "fatal", "panic":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "console", "json":
			return true
		default:
			return false
		}
	})

	return validate.Struct(cfg)
}
