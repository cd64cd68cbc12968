package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp(defaultDeps()).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
