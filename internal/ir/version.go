package ir

// Version constants for the rule schema and engine.
const (
	// SchemaVersion is the rule-store schema version accepted by the compiler.
	SchemaVersion = "1"

	// EngineVersion is the partsel engine version recorded with every run.
	EngineVersion = "0.1.0"
)
