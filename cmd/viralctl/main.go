// Command viralctl trains and queries the viral sequence classifier from the
// command line, using the same configuration and artifact storage as the
// HTTP service.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
