package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Retention: RetentionConfig{
			Days: 30,
		},
		Classifier: ClassifierConfig{
			ProductiveDomains: DefaultProductiveDomains(),
		},
		Storage: StorageConfig{
			Path:              "~/.config/tabtime",
			SQLiteFile:        "tabtime.db",
			HoldingFile:       "holding.json.zst",
			SQLiteJournalMode: "wal",
		},
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8721,
			MaxRequestSize: 1 << 20,
			AllowOrigins:   []string{"*"},
			RateLimit:      20,
			RateBurst:      40,
		},
		Sync: SyncConfig{
			Enabled:        true,
			Endpoint:       "http://127.0.0.1:8721/api/v1/records",
			TimeoutSeconds: 5,
			MaxInFlight:    16,
		},
		Tracker: TrackerConfig{
			TickSeconds:    1,
			QueueSize:      64,
			IdleCapMinutes: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
