package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	RulesFile         string
	Port              string
	QueueSize         int
	SchedulerInterval int
	APIAccessKey      string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
