package config

// ConfigFileNames are all recognized union declaration file names,
// checked in order.
var ConfigFileNames = []string{"funion.yaml", "funion.yml"}

// DefaultJournalFile is the journal database used when no -j flag is given.
const DefaultJournalFile = "funion.db"

// DebugEnvVar re-enables panic stack traces when set to "1".
// This is checked once at startup in main.go.
const DebugEnvVar = "FUNION_DEBUG"
