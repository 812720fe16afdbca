package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/banshee-data/raceline.report/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "build":
		handleBuild(args)
	case "solve":
		handleSolve(args)
	case "report":
		handleReport(args)
	case "version":
		fmt.Printf("raceline version %s (%s, built %s)\n",
			version.Version, version.GitSHA, version.BuildTime)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`raceline - track reconstruction and optimal line solver

Usage: raceline <command> [options]

Commands:
  build      Reconstruct a track centerline from recorded GPS samples
  solve      Build the track and solve the optimal racing line
  report     Render plots and an HTML report for a stored session
  version    Show raceline version
  help       Show this help message

Common Flags:
  --samples <file>     GPS samples JSON file (build, solve)
  --db <file>          Snapshot database path (default: raceline.db)
  --session <uuid>     Session ID to report on (report; default: latest save)
  --out <dir>          Output directory for plots and reports (default: out)
  --units <unit>       Speed units for output: mps, mph, kmph, kph
  --config <file>      Tuning config JSON (builder, solver, vehicle overrides)
  --start-lat <deg>    Start/finish line latitude (build, solve; optional)
  --start-lon <deg>    Start/finish line longitude (build, solve; optional)

Weather Flags (solve):
  --air-temp <c>       Air temperature in Celsius (default: 25)
  --track-temp <c>     Track temperature in Celsius (default: derived)
  --rainfall <mm/hr>   Rainfall intensity (default: 0)
  --category <name>    Surface category: dry, damp, intermediate, wet
                       (default: derived from rainfall)

Examples:
  # Reconstruct a track and store the result
  raceline build --samples laps.json --db monza.db

  # Solve in damp conditions and render everything
  raceline solve --samples laps.json --rainfall 1.5 --out out/

  # Re-render reports from the stored session
  raceline report --db monza.db --out out/`)
}
