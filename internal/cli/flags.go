package cli

import (
	"database/sql"
	"io"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DBPath  string `long:"db-path" description:"Override the history database path"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// TraceCommand traces one word and prints the detail panel.
type TraceCommand struct {
	NoCache bool   `long:"no-cache" description:"Always ask the model, ignoring stored traces"`
	Year    string `long:"year" description:"Show the stage nearest this year (negative for BCE)"`

	Args struct {
		Word []string `positional-arg-name:"word" required:"1"`
	} `positional-args:"yes"`

	globals *GlobalFlags
	version string
}

// PlayCommand opens the terminal player, or autoplays to stdout.
type PlayCommand struct {
	Headless bool   `long:"headless" description:"Autoplay to stdout until the last stage"`
	Interval string `long:"interval" description:"Autoplay step (e.g. 2.5s, 500ms)"`
	ID       string `long:"id" description:"Play a stored trace instead of searching"`

	Args struct {
		Word []string `positional-arg-name:"word"`
	} `positional-args:"yes"`

	globals *GlobalFlags
	version string
}

// ServeCommand runs the HTTP API.
type ServeCommand struct {
	Host string `long:"host" description:"Override listen host"`
	Port int    `long:"port" description:"Override listen port"`

	globals *GlobalFlags
	version string
}

// HistoryCommand searches stored traces.
type HistoryCommand struct {
	Since    string `long:"since" description:"Only traces newer than duration (e.g., 7d, 24h, 2w)" default:"30d"`
	Until    string `long:"until" description:"Only traces older than duration"`
	Language string `long:"language" description:"Only traces with a stage in this language"`
	Limit    int    `long:"limit" description:"Maximum results" default:"10"`
	Offset   int    `long:"offset" description:"Skip first N results" default:"0"`

	Args struct {
		Query []string `positional-arg-name:"query"`
	} `positional-args:"yes"`

	globals *GlobalFlags
	version string
}

// OpenCommand prints a stored trace.
type OpenCommand struct {
	ID     string `long:"id" description:"Trace ID (required)"`
	Format string `long:"format" description:"Output format: full | md | json | svg" default:"full"`
	Year   string `long:"year" description:"Stage to show for full and svg output"`

	globals *GlobalFlags
	version string
}

// AddCommand imports a trace JSON file into the history.
type AddCommand struct {
	File     string `long:"file" description:"Path to a word evolution JSON file (required)"`
	Word     string `long:"word" description:"Search term to file it under (default: its modern word)"`
	Provider string `long:"provider" description:"Source label" default:"import"`

	globals *GlobalFlags
	version string
}

// RenderCommand writes the SVG map or timeline strip.
type RenderCommand struct {
	ID    string `long:"id" description:"Render a stored trace"`
	Year  string `long:"year" description:"Active year (default: last stage)"`
	Out   string `long:"out" short:"o" description:"Output file (default: stdout)"`
	Strip bool   `long:"strip" description:"Render the timeline strip instead of the map"`

	Args struct {
		Word []string `positional-arg-name:"word"`
	} `positional-args:"yes"`

	globals *GlobalFlags
	version string
}

// PruneCommand removes traces older than the retention period.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
}

// PurgeCommand deletes the whole history after confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	db      *sql.DB   // injectable for testing; nil means open the configured DB
	in      io.Reader // confirmation input; nil means os.Stdin
}

// StatusCommand shows history statistics and configuration.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}
