package config

// Config is the full server configuration.
type Config struct {
	HTTP   HTTPConf
	Store  StoreConf
	Log    LogConf
	Engine EngineConf
}

// HTTPConf configures the API listener.
type HTTPConf struct {
	Addr               string
	RateLimitPerMinute int
	MaxBodyBytes       int64
}

// StoreConf selects the rule store. Seed, when set, names a YAML or JSON
// rule document imported into an empty store at startup.
type StoreConf struct {
	Type  string
	Path  string
	Watch bool
	Seed  string
}

// LogConf configures the process logger.
type LogConf struct {
	Level  string
	Format string
}

// EngineConf holds tunable concurrency settings for batch evaluation.
type EngineConf struct {
	Workers       int
	QueueDepth    int
	BatchMaxSize  int
	EvalTimeoutMs int
}
