// Package cli defines the command definition tree shared by the host CLI and
// its plugins, and the configuration blocks that describe them.
//
// A host CLI is described by a HostConfig. Each installed plugin carries a
// PluginConfig inside its package descriptor. Both contribute
// CommandDefinition trees that are merged into a single resolved tree at
// startup.
package cli

// CommandType distinguishes groups from runnable commands.
type CommandType string

const (
	// CommandTypeGroup is a node that only contains children.
	CommandTypeGroup CommandType = "group"

	// CommandTypeCommand is a leaf node with a handler.
	CommandTypeCommand CommandType = "command"
)

// OptionType is the declared value type of an option or positional.
type OptionType string

const (
	OptionTypeString  OptionType = "string"
	OptionTypeBoolean OptionType = "boolean"
	OptionTypeNumber  OptionType = "number"
	OptionTypeArray   OptionType = "array"
)

// CommandDefinition is a node in the command definition tree.
type CommandDefinition struct {
	Name        string               `yaml:"name,omitempty" json:"name,omitempty"`
	Aliases     []string             `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Type        CommandType          `yaml:"type,omitempty" json:"type,omitempty"`
	Summary     string               `yaml:"summary,omitempty" json:"summary,omitempty"`
	Description string               `yaml:"description,omitempty" json:"description,omitempty"`
	Handler     string               `yaml:"handler,omitempty" json:"handler,omitempty"`
	Children    []*CommandDefinition `yaml:"children,omitempty" json:"children,omitempty"`
	Positionals []*OptionDefinition  `yaml:"positionals,omitempty" json:"positionals,omitempty"`
	Options     []*OptionDefinition  `yaml:"options,omitempty" json:"options,omitempty"`
	Profile     *ProfileDependency   `yaml:"profile,omitempty" json:"profile,omitempty"`
	Examples    []*Example           `yaml:"examples,omitempty" json:"examples,omitempty"`
}

// OptionDefinition declares a named option or a positional argument.
type OptionDefinition struct {
	Name            string     `yaml:"name" json:"name"`
	Aliases         []string   `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Description     string     `yaml:"description,omitempty" json:"description,omitempty"`
	Type            OptionType `yaml:"type" json:"type"`
	Required        bool       `yaml:"required,omitempty" json:"required,omitempty"`
	DefaultValue    any        `yaml:"defaultValue,omitempty" json:"defaultValue,omitempty"`
	AllowableValues []string   `yaml:"allowableValues,omitempty" json:"allowableValues,omitempty"`
}

// ProfileDependency lists the profile types a command loads its values from.
type ProfileDependency struct {
	Required []string `yaml:"required,omitempty" json:"required,omitempty"`
	Optional []string `yaml:"optional,omitempty" json:"optional,omitempty"`
}

// Types returns required types followed by optional types.
func (p *ProfileDependency) Types() []string {
	if p == nil {
		return nil
	}
	types := make([]string, 0, len(p.Required)+len(p.Optional))
	types = append(types, p.Required...)
	types = append(types, p.Optional...)
	return types
}

// Example is a usage example shown in help output.
type Example struct {
	Description string `yaml:"description" json:"description"`
	Options     string `yaml:"options" json:"options"`
}

// ProfileTypeConfiguration declares a profile type and the schema of its fields.
type ProfileTypeConfiguration struct {
	Type   string         `yaml:"type" json:"type"`
	Schema *ProfileSchema `yaml:"schema,omitempty" json:"schema,omitempty"`
}

// ProfileSchema describes the fields stored in a profile of one type.
type ProfileSchema struct {
	Type        string                      `yaml:"type,omitempty" json:"type,omitempty"`
	Title       string                      `yaml:"title,omitempty" json:"title,omitempty"`
	Description string                      `yaml:"description,omitempty" json:"description,omitempty"`
	Properties  map[string]*ProfileProperty `yaml:"properties,omitempty" json:"properties,omitempty"`
	Required    []string                    `yaml:"required,omitempty" json:"required,omitempty"`
}

// ProfileProperty is one field of a profile schema. OptionDefinition links the
// field to the command option it supplies.
type ProfileProperty struct {
	Type             string            `yaml:"type" json:"type"`
	Description      string            `yaml:"description,omitempty" json:"description,omitempty"`
	Secure           bool              `yaml:"secure,omitempty" json:"secure,omitempty"`
	OptionDefinition *OptionDefinition `yaml:"optionDefinition,omitempty" json:"optionDefinition,omitempty"`
}

// Overrides names replacement implementations for pluggable host services.
type Overrides struct {
	CredentialManager string `yaml:"CredentialManager,omitempty" json:"CredentialManager,omitempty"`
}

// PluginConfig is the framework configuration block a plugin declares in its
// package descriptor.
type PluginConfig struct {
	Name                   string                      `yaml:"name,omitempty" json:"name,omitempty"`
	PluginAliases          []string                    `yaml:"pluginAliases,omitempty" json:"pluginAliases,omitempty"`
	PluginSummary          string                      `yaml:"pluginSummary,omitempty" json:"pluginSummary,omitempty"`
	RootCommandDescription string                      `yaml:"rootCommandDescription,omitempty" json:"rootCommandDescription,omitempty"`
	PluginBaseCliVersion   string                      `yaml:"pluginBaseCliVersion,omitempty" json:"pluginBaseCliVersion,omitempty"`
	PluginHealthCheck      string                      `yaml:"pluginHealthCheck,omitempty" json:"pluginHealthCheck,omitempty"`
	Definitions            []*CommandDefinition        `yaml:"definitions,omitempty" json:"definitions,omitempty"`
	CommandModuleGlobs     []string                    `yaml:"commandModuleGlobs,omitempty" json:"commandModuleGlobs,omitempty"`
	Profiles               []*ProfileTypeConfiguration `yaml:"profiles,omitempty" json:"profiles,omitempty"`
	Overrides              Overrides                   `yaml:"overrides,omitempty" json:"overrides,omitempty"`
	ConfigurationModule    string                      `yaml:"configurationModule,omitempty" json:"configurationModule,omitempty"`
}

// HostConfig describes the host CLI itself.
type HostConfig struct {
	PluginConfig `yaml:",inline" json:",inline"`

	BinName            string `yaml:"binName,omitempty" json:"binName,omitempty"`
	PackageName        string `yaml:"packageName,omitempty" json:"packageName,omitempty"`
	Version            string `yaml:"version,omitempty" json:"version,omitempty"`
	ProductDisplayName string `yaml:"productDisplayName,omitempty" json:"productDisplayName,omitempty"`
	EnvVariablePrefix  string `yaml:"envVariablePrefix,omitempty" json:"envVariablePrefix,omitempty"`
	DefaultHome        string `yaml:"defaultHome,omitempty" json:"defaultHome,omitempty"`
	WebHelp            bool   `yaml:"webHelp,omitempty" json:"webHelp,omitempty"`
}
