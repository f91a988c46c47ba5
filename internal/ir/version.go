package ir

// Version constants for the call log schema and the host engine.
const (
	// IRVersion is the call record schema version.
	IRVersion = "1"

	// EngineVersion is the tapgame host version.
	EngineVersion = "0.1.0"
)
