package plugin

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// IssueSeverity classifies a plugin issue.
type IssueSeverity int

const (
	// SeverityWarning does not prevent the plugin from being added.
	SeverityWarning IssueSeverity = iota
	// SeverityError excludes the plugin from the command tree.
	SeverityError
)

// String returns the severity label used in messages and reports.
func (s IssueSeverity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	default:
		return fmt.Sprintf("IssueSeverity(%d)", int(s))
	}
}

// MarshalJSON encodes the severity as its label.
func (s IssueSeverity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity label.
func (s *IssueSeverity) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	switch label {
	case "ERROR":
		*s = SeverityError
	case "WARNING":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown issue severity %q", label)
	}
	return nil
}

// MarshalYAML encodes the severity as its label.
func (s IssueSeverity) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// Issue is a single finding recorded against a plugin.
type Issue struct {
	Severity IssueSeverity `json:"issueSev" yaml:"issueSev"`
	Text     string        `json:"issueText" yaml:"issueText"`
}

// IssueStore records issues per plugin name.
type IssueStore interface {
	// Record appends an issue for the plugin.
	Record(pluginName string, sev IssueSeverity, text string)
	// IssuesFor returns a copy of the plugin's issues in recording order.
	IssuesFor(pluginName string) []Issue
	// HasError reports whether any issue for the plugin is an error.
	HasError(pluginName string) bool
	// Remove drops every issue for the plugin.
	Remove(pluginName string)
	// Plugins returns the names of plugins with at least one issue, sorted.
	Plugins() []string
}

// MemoryIssueStore is an IssueStore held in memory.
type MemoryIssueStore struct {
	mu     sync.RWMutex
	issues map[string][]Issue
}

// NewMemoryIssueStore creates an empty issue store.
func NewMemoryIssueStore() *MemoryIssueStore {
	return &MemoryIssueStore{
		issues: make(map[string][]Issue),
	}
}

// Record appends an issue for the plugin.
func (s *MemoryIssueStore) Record(pluginName string, sev IssueSeverity, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues[pluginName] = append(s.issues[pluginName], Issue{Severity: sev, Text: text})
}

// IssuesFor returns a copy of the plugin's issues.
func (s *MemoryIssueStore) IssuesFor(pluginName string) []Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.issues[pluginName]
	out := make([]Issue, len(list))
	copy(out, list)
	return out
}

// HasError reports whether the plugin has an error issue.
func (s *MemoryIssueStore) HasError(pluginName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, issue := range s.issues[pluginName] {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Remove drops every issue for the plugin.
func (s *MemoryIssueStore) Remove(pluginName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.issues, pluginName)
}

// Plugins returns the sorted names of plugins with recorded issues.
func (s *MemoryIssueStore) Plugins() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.issues))
	for name, list := range s.issues {
		if len(list) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
