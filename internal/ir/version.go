package ir

// Version constants for the listing schema and engine.
const (
	// IRVersion is the token model schema version.
	IRVersion = "1"

	// EngineVersion is the ilpatch engine version.
	EngineVersion = "0.3.0"
)
