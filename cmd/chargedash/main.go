// Fetches Tesla charging history and renders a static HTML dashboard.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"chargedash/internal/config"
	"chargedash/internal/log"
	"chargedash/pkg/cli"
)

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "usage: %s [OPTION...]\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Fetches Tesla charging history and renders a self-contained HTML dashboard.")
	fmt.Fprintln(w, "Provide -email to fetch online, or -offline to render from the cache file.")
	fmt.Fprintln(w, "With -discover, the raw API payloads are written to the data directory and")
	fmt.Fprintln(w, "no dashboard is rendered.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "OPTIONS:")
	flag.PrintDefaults()
}

func main() {
	returnCode := 1
	defer func() {
		os.Exit(returnCode)
	}()

	cliConfig := cli.NewConfig(cli.FlagAll)
	cliConfig.RegisterCommandLineFlags()
	flag.Usage = usage
	flag.Parse()
	cliConfig.ReadFromEnvironment()

	cfg, err := config.Load(cliConfig.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %s\n", err)
		return
	}
	if cliConfig.Debug {
		log.SetLevel(log.LevelDebug)
	} else {
		log.SetLevel(log.ParseLevel(cfg.Logging.Level))
	}

	if err := run(context.Background(), cliConfig, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}
	returnCode = 0
}
