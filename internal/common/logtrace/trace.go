package logtrace

import "os"

// TraceEnvVar switches on route tracing at startup.
const TraceEnvVar = "KAYA_SEED_TRACE"

// IsTraceEnabled reports whether route tracing is requested via the
// environment.
func IsTraceEnabled() bool {
	switch os.Getenv(TraceEnvVar) {
	case "1", "true", "yes":
		return true
	}
	return false
}
