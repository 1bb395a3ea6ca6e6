package domain

// Settings holds the global default values for the optional trigger
// properties. Exactly one settings record exists per deployment.
type Settings struct {
	Cooldown      int // seconds
	CaseSensitive bool
	AvoidLinks    bool
	AvoidEmotes   bool
}

// DefaultSettings returns the values used when no record exists yet.
func DefaultSettings() Settings {
	return Settings{}
}
