package secrets

// DefaultFieldPatterns returns glob patterns for option and field names that
// usually carry sensitive values.
func DefaultFieldPatterns() []string {
	return []string{
		"*password*",
		"*passwd*",
		"*passphrase*",
		"*secret*",
		"*token*",
		"*-key",
		"*apikey*",
		"*credential*",
		"auth",
		"authorization",
		"*bearer*",
		"cookie",
		"*session-id*",
	}
}
