// Utility for storing OAuth tokens in the system keyring

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"chargedash/pkg/cli"
)

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "usage: %s [-token-name token_name] [file]\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Reads an OAuth token from stdin or file and saves it under token_name in the")
	fmt.Fprintf(w, "system keyring. The token_name defaults to $%s.\n", cli.EnvTokenName)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "The token may be either a bare access token or the JSON token object written")
	fmt.Fprintln(w, "by chargedash to its cache file.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "OPTIONS:")
	flag.PrintDefaults()
}

func main() {
	returnCode := 1
	defer func() {
		os.Exit(returnCode)
	}()

	config := cli.NewConfig(cli.FlagKeyring)
	config.RegisterCommandLineFlags()
	flag.Usage = usage
	flag.Parse()
	config.ReadFromEnvironment()

	if config.KeyringTokenName == "" {
		fmt.Fprintf(os.Stderr, "Must provide a keyring name to save the OAuth token under using -token-name or $%s\n", cli.EnvTokenName)
		return
	}

	var token []byte
	var err error
	switch flag.NArg() {
	case 0:
		token, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading token from stdin: %s\n", err)
			return
		}
	case 1:
		token, err = os.ReadFile(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading token from file: %s\n", err)
			return
		}
	default:
		fmt.Fprintln(os.Stderr, "Too many command-line arguments")
		return
	}

	if err := config.SaveTokenToKeyring(string(token)); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving token to keyring: %s\n", err)
		return
	}

	returnCode = 0
}
