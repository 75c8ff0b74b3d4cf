package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/CliForge/pluginhost/pkg/cli"
	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/plugin.schema.json
var pluginSchemaBytes []byte

var (
	pluginSchema     *jsonschema.Schema
	pluginSchemaOnce sync.Once
	pluginSchemaErr  error
	printer          = message.NewPrinter(language.English)

	binNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	envPrefixRe    = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validator checks host and plugin configurations.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate checks the host configuration.
func (v *Validator) Validate(host *cli.HostConfig) error {
	v.errors = make(ValidationErrors, 0)
	if host == nil {
		v.addError("", "host configuration is nil")
		return v.errors
	}

	if host.BinName == "" {
		v.addError("binName", "binName is required")
	} else if !binNamePattern.MatchString(host.BinName) {
		v.addError("binName", "binName must contain only lowercase letters, numbers, and hyphens")
	}

	if host.Version != "" {
		if _, err := semver.NewVersion(host.Version); err != nil {
			v.addError("version", "version must follow semantic versioning (e.g., 1.0.0)")
		}
	}

	if host.EnvVariablePrefix != "" && !envPrefixRe.MatchString(host.EnvVariablePrefix) {
		v.addError("envVariablePrefix", "envVariablePrefix must be upper case letters, numbers, and underscores")
	}

	if err := v.validateSchema(&host.PluginConfig); err != nil {
		return err
	}

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// ValidatePluginConfig checks a plugin configuration against the embedded
// plugin schema.
func (v *Validator) ValidatePluginConfig(cfg *cli.PluginConfig) error {
	v.errors = make(ValidationErrors, 0)
	if cfg == nil {
		v.addError("", "plugin configuration is nil")
		return v.errors
	}
	if err := v.validateSchema(cfg); err != nil {
		return err
	}
	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// validateSchema appends one error per failing schema keyword. The returned
// error is only set when the schema itself cannot be used.
func (v *Validator) validateSchema(cfg *cli.PluginConfig) error {
	schema, err := getPluginSchema()
	if err != nil {
		return fmt.Errorf("loading plugin schema: %w", err)
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("converting plugin configuration to JSON: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("preparing plugin configuration for validation: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("unexpected validation error type: %w", err)
	}
	before := len(v.errors)
	v.collect(ve)
	if len(v.errors) == before {
		v.addError("", ve.Error())
	}
	return nil
}

func (v *Validator) collect(ve *jsonschema.ValidationError) {
	if len(ve.Causes) == 0 {
		field := strings.Join(ve.InstanceLocation, ".")
		msg := ve.Error()
		if ve.ErrorKind != nil {
			kw := ve.ErrorKind.KeywordPath()
			if len(kw) > 0 && (kw[len(kw)-1] == "allOf" || kw[len(kw)-1] == "$ref") {
				return
			}
			msg = ve.ErrorKind.LocalizedString(printer)
		}
		for _, existing := range v.errors {
			if existing.Field == field && existing.Message == msg {
				return
			}
		}
		v.addError(field, msg)
		return
	}
	for _, cause := range ve.Causes {
		v.collect(cause)
	}
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// getPluginSchema compiles the embedded schema once.
func getPluginSchema() (*jsonschema.Schema, error) {
	pluginSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(pluginSchemaBytes))
		if err != nil {
			pluginSchemaErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("plugin.schema.json", doc); err != nil {
			pluginSchemaErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		pluginSchema, pluginSchemaErr = c.Compile("plugin.schema.json")
		if pluginSchemaErr != nil {
			pluginSchemaErr = fmt.Errorf("compiling schema: %w", pluginSchemaErr)
		}
	})
	return pluginSchema, pluginSchemaErr
}
