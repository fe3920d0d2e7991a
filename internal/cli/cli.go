package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status *StatusCommand
	List   *ListCommand
	Show   *ShowCommand
	Add    *AddCommand
	Serve  *ServeCommand
	Track  *TrackCommand
	Report *ReportCommand
	Local  *LocalCommand
	Prune  *PruneCommand
	Purge  *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "tabtime"
	parser.LongDescription = "Attribute browsing time to productive and unproductive sites and report on it."

	d := deps{globals: &globals, version: version}
	cmds := &commands{
		Status: &StatusCommand{deps: d},
		List:   &ListCommand{deps: d},
		Show:   &ShowCommand{deps: d},
		Add:    &AddCommand{deps: d},
		Serve:  &ServeCommand{deps: d},
		Track:  &TrackCommand{deps: d},
		Report: &ReportCommand{deps: d},
		Local:  &LocalCommand{deps: d},
		Prune:  &PruneCommand{deps: d},
		Purge:  &PurgeCommand{deps: d},
	}

	parser.AddCommand("status", "Show database statistics", "Show record counts, tracked time, top domains and whether the service is reachable.", cmds.Status)
	parser.AddCommand("list", "List stored records", "List stored time records, newest first, with optional filters.", cmds.List)
	parser.AddCommand("show", "Print one record", "Print a single stored record by ID.", cmds.Show)
	parser.AddCommand("add", "Record time by hand", "Store a time record for a URL or domain.", cmds.Add)
	parser.AddCommand("serve", "Run the HTTP service", "Run the ingestion and analytics HTTP service until interrupted.", cmds.Serve)
	parser.AddCommand("track", "Track tab events from stdin", "Read tab lifecycle events as JSON lines from stdin and attribute time to the focused tab.", cmds.Track)
	parser.AddCommand("report", "Render an analytics view", "Render a summary or analytics view over the stored records.", cmds.Report)
	parser.AddCommand("local", "List the local holding area", "List records kept in the local holding area.", cmds.Local)
	parser.AddCommand("prune", "Apply retention pruning", "Delete records older than the retention period.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL stored records", "Delete ALL stored records. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the tabtime CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// --version is valid without a subcommand, which go-flags would reject.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("tabtime %s\n", version)
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
