// Command kanalyze is the analysis infrastructure's process entry point: it
// wires configuration, the extraction pipeline, the progress reporter, the
// result cache, the change watcher, and the request/response server into
// four subcommands (batch, server, client, config).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
