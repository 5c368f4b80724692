package config

import (
	"errors"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
)

// RunKind returns the parsed kind of the file, or fallback when the file does
// not name one.
func (f *File) RunKind(fallback loadtest.Kind) (loadtest.Kind, error) {
	if f.Kind == "" {
		return fallback, nil
	}
	return loadtest.ParseKind(f.Kind)
}

// Validate checks the settings and the test configuration for a run of the
// given kind. It returns a *loadtest.ValidationErrors listing every problem.
func (f *File) Validate(kind loadtest.Kind) error {
	errs := &loadtest.ValidationErrors{}
	f.Settings.validate(errs)

	if err := f.Test.Validate(kind); err != nil {
		var testErrs *loadtest.ValidationErrors
		if !errors.As(err, &testErrs) {
			return err
		}
		for _, e := range testErrs.Errors {
			field := e.Field
			if field != "kind" {
				field = "test." + field
			}
			errs.Add(field, e.Message)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// ValidateSettings checks only the settings section, for commands that do
// not run the test section themselves.
func (f *File) ValidateSettings() error {
	errs := &loadtest.ValidationErrors{}
	f.Settings.validate(errs)
	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (s Settings) validate(errs *loadtest.ValidationErrors) {
	if s.Timeout < 0 {
		errs.Add("settings.timeout", "timeout must not be negative")
	}
	if s.SampleInterval < 0 {
		errs.Add("settings.sampleInterval", "sampleInterval must not be negative")
	}
	if s.MaxIdleConnsPerHost < 0 {
		errs.Add("settings.maxIdleConnsPerHost", "maxIdleConnsPerHost must not be negative")
	}
}
