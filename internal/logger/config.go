// internal/logger/config.go
package logger

type Config struct {
	Level      string // debug, info, warn, error
	LogFile    string // empty disables the file sink
	MaxSize    int    // megabytes
	MaxAge     int    // days
	MaxBackups int    // rotated files to keep
	Compress   bool   // gzip rotated files
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		LogFile:    "vaultd.log",
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
}
