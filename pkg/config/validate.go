package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/praetorian-inc/gosek/pkg/logging"
	"github.com/praetorian-inc/gosek/pkg/types"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("proxyurl", validateProxyURL)
		_ = validate.RegisterValidation("loglevel", validateLogLevel)
		_ = validate.RegisterValidation("logformat", validateLogFormat)
	})
	return validate
}

// validateProxyURL accepts absolute http, https and socks5 URLs.
func validateProxyURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5":
		return true
	}
	return false
}

func validateLogLevel(fl validator.FieldLevel) bool {
	_, err := logging.ParseLevel(fl.Field().String())
	return err == nil
}

func validateLogFormat(fl validator.FieldLevel) bool {
	_, err := logging.ParseFormat(fl.Field().String())
	return err == nil
}

// validateStruct runs tag validation and reports the first failure as a
// ConfigError naming the flag.
func validateStruct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &types.ConfigError{Err: err}
	}

	fe := verrs[0]
	field := fe.Field()
	msg := fmt.Sprintf("failed rule '%s'", fe.Tag())
	if fe.Param() != "" {
		msg += fmt.Sprintf(" (%s)", fe.Param())
	}
	return &types.ConfigError{Field: field, Err: errors.New(msg)}
}
