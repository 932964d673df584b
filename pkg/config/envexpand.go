package config

import "os"

// ExpandEnv expands environment variables in raw file content using Go's
// standard library. Supports both ${VAR} and $VAR syntax.
//
// Missing variables expand to empty string; validation should catch
// required fields left empty by expansion.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
