package cfg

type Cfg struct {
	// Application configuration
	FeedsDir          string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Pipeline configuration
	Concurrency  int
	FetchTimeout int
	Once         bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
