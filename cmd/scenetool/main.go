// Command scenetool validates, simulates and diffs scene documents without
// opening the editor window.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scenetool:", err)
		os.Exit(1)
	}
}
