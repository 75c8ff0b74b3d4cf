package plugin

import (
	"fmt"
	"strings"

	"github.com/CliForge/pluginhost/pkg/cli"
)

// ConflictResult is the outcome of a name/alias conflict check.
type ConflictResult struct {
	HasConflict bool
	Message     string
}

// ConflictingNameOrAlias checks whether the plugin's group collides with an
// existing command group. Names and aliases are compared case-insensitively
// in both directions.
func ConflictingNameOrAlias(pluginName string, candidate, existing *cli.CommandDefinition) ConflictResult {
	if candidate == nil || existing == nil {
		return ConflictResult{}
	}

	existingNames := append([]string{existing.Name}, existing.Aliases...)

	if name := candidate.Name; name != "" {
		for _, taken := range existingNames {
			if taken != "" && strings.EqualFold(name, taken) {
				return ConflictResult{
					HasConflict: true,
					Message: fmt.Sprintf("The plug-in named '%s' attempted to add a command group named '%s'. "+
						"Your base application already contains a command group named '%s'.",
						pluginName, name, describeExisting(existing, taken)),
				}
			}
		}
	}

	for _, alias := range candidate.Aliases {
		if alias == "" {
			continue
		}
		for _, taken := range existingNames {
			if taken != "" && strings.EqualFold(alias, taken) {
				return ConflictResult{
					HasConflict: true,
					Message: fmt.Sprintf("The plug-in named '%s' attempted to add a command group with an alias of '%s'. "+
						"Your base application already contains a command group named '%s'.",
						pluginName, alias, describeExisting(existing, taken)),
				}
			}
		}
	}

	return ConflictResult{}
}

// describeExisting names the existing group, and the alias when the match was
// on one of its aliases.
func describeExisting(existing *cli.CommandDefinition, matched string) string {
	if strings.EqualFold(existing.Name, matched) {
		return existing.Name
	}
	return fmt.Sprintf("%s' with an alias of '%s", existing.Name, matched)
}
