package validation

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidatorCollectsErrors(t *testing.T) {
	cv := NewConfigValidator("ServerConfig").
		Required("Host", "").
		RangeInt("Port", 99999, 1, 65535).
		Positive("CacheSize", -1)

	if !cv.HasErrors() {
		t.Fatal("Expected validation errors")
	}
	if len(cv.Errors()) != 3 {
		t.Errorf("Expected 3 errors, got %d", len(cv.Errors()))
	}
	if err := cv.Validate(); err == nil {
		t.Error("Validate should return combined error")
	}
}

func TestConfigValidatorPasses(t *testing.T) {
	cv := NewConfigValidator("ServerConfig").
		Required("Host", "localhost").
		RangeInt("Port", 8080, 1, 65535).
		MinDuration("Timeout", 5*time.Second, time.Second).
		OneOf("LogLevel", "info", []string{"debug", "info", "warn", "error"}).
		NonNegativeFloat("RateLimit", 2.5)

	if cv.HasErrors() {
		t.Errorf("Unexpected errors: %v", cv.Errors())
	}
	if err := cv.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestConfigValidatorWhen(t *testing.T) {
	cv := NewConfigValidator("AuthConfig").
		When(false, func(cv *ConfigValidator) {
			cv.Required("Secret", "")
		})
	if cv.HasErrors() {
		t.Error("Disabled condition should skip validations")
	}

	cv = NewConfigValidator("AuthConfig").
		When(true, func(cv *ConfigValidator) {
			cv.Required("Secret", "")
		})
	if !cv.HasErrors() {
		t.Error("Enabled condition should apply validations")
	}
}

func TestConfigValidatorCustom(t *testing.T) {
	cv := NewConfigValidator("AuthConfig").
		Custom("Secret", func() error {
			return errors.New("secret too short")
		})
	if err := cv.Validate(); err == nil {
		t.Error("Custom validation error not surfaced")
	}
}

func TestDefaultOr(t *testing.T) {
	if got := DefaultOr("", "fallback"); got != "fallback" {
		t.Errorf("DefaultOr empty = %q", got)
	}
	if got := DefaultOr("set", "fallback"); got != "set" {
		t.Errorf("DefaultOr set = %q", got)
	}
	if got := DefaultOr(0, 42); got != 42 {
		t.Errorf("DefaultOr zero int = %d", got)
	}
}

func TestDefaultOrDuration(t *testing.T) {
	if got := DefaultOrDuration(0, time.Minute); got != time.Minute {
		t.Errorf("DefaultOrDuration zero = %v", got)
	}
	if got := DefaultOrDuration(time.Second, time.Minute); got != time.Second {
		t.Errorf("DefaultOrDuration set = %v", got)
	}
}
