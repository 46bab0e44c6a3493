// Command picopost-log is a tool for viewing and analyzing picopost event
// capture files.
//
// Capture files are created when running picopost-client or picopost-server
// with the -event-log flag.
//
// Usage:
//
//	picopost-log <command> [flags] <file.plog>
//
// Commands:
//
//	view     View capture file in human-readable format
//	export   Export capture file to JSON or CSV format
//	stats    Show statistics about the capture file
//
// Examples:
//
//	# View all events
//	picopost-log view client.plog
//
//	# View only errors
//	picopost-log view --category error client.plog
//
//	# View one attempt
//	picopost-log view --attempt-id abc12345-6789-0123-4567-890abcdef012 client.plog
//
//	# Export to JSONL
//	picopost-log export --format jsonl client.plog
//
//	# Show statistics
//	picopost-log stats client.plog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mytechnotalent/picopost/cmd/picopost-log/commands"
	"github.com/mytechnotalent/picopost/pkg/log"
)

const usage = `picopost-log - picopost event capture analyzer

Usage:
  picopost-log <command> [flags] <file.plog>

Commands:
  view     View capture file in human-readable format
  export   Export capture file to JSON or CSV format
  stats    Show statistics about the capture file

Use "picopost-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `picopost-log view - View capture file in human-readable format

Usage:
  picopost-log view [flags] <file.plog>

Flags:
`)
		fs.PrintDefaults()
	}

	category := fs.String("category", "", "Filter by category (progress, state, data, error)")
	attemptID := fs.String("attempt-id", "", "Filter by attempt ID")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)

	var filter log.Filter
	filter.AttemptID = *attemptID
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `picopost-log export - Export capture file to JSON or CSV format

Usage:
  picopost-log export [flags] <file.plog>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `picopost-log stats - Show statistics about the capture file

Usage:
  picopost-log stats <file.plog>
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func requirePath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}
