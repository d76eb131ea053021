package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Trace   *TraceCommand
	Play    *PlayCommand
	Serve   *ServeCommand
	History *HistoryCommand
	Open    *OpenCommand
	Add     *AddCommand
	Render  *RenderCommand
	Prune   *PruneCommand
	Purge   *PurgeCommand
	Status  *StatusCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "geoword"
	parser.LongDescription = "Trace the etymological journey of a word across languages, places and centuries."

	cmds := &commands{
		Trace:   &TraceCommand{globals: &globals, version: version},
		Play:    &PlayCommand{globals: &globals, version: version},
		Serve:   &ServeCommand{globals: &globals, version: version},
		History: &HistoryCommand{globals: &globals, version: version},
		Open:    &OpenCommand{globals: &globals, version: version},
		Add:     &AddCommand{globals: &globals, version: version},
		Render:  &RenderCommand{globals: &globals, version: version},
		Prune:   &PruneCommand{globals: &globals, version: version},
		Purge:   &PurgeCommand{globals: &globals, version: version},
		Status:  &StatusCommand{globals: &globals, version: version},
	}

	parser.AddCommand("trace", "Trace a word", "Trace the evolution of a word and print the stage detail.", cmds.Trace)
	parser.AddCommand("play", "Play a word's journey", "Open the terminal player, or autoplay to stdout with --headless.", cmds.Play)
	parser.AddCommand("serve", "Run the HTTP API", "Serve the JSON API, SVG renderings and the WebSocket stream.", cmds.Serve)
	parser.AddCommand("history", "Search stored traces", "Search previously traced words by keyword, with optional filters.", cmds.History)
	parser.AddCommand("open", "Print a stored trace", "Print a stored trace as text, markdown, JSON or SVG.", cmds.Open)
	parser.AddCommand("add", "Import a trace file", "Validate a word evolution JSON file and store it in the history.", cmds.Add)
	parser.AddCommand("render", "Render SVG", "Render the migration map or timeline strip as SVG.", cmds.Render)
	parser.AddCommand("prune", "Apply retention pruning", "Remove traces older than the retention period.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL history", "Delete ALL stored traces. Destructive operation with safety prompt.", cmds.Purge)
	parser.AddCommand("status", "Show history statistics", "Show history statistics and configuration summary.", cmds.Status)

	return parser, &globals, cmds
}

// Run is the main entry point for the CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// go-flags requires a subcommand, but --version is valid without one.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("geoword %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
