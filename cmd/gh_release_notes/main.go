package main

import (
	"fmt"
	"os"

	"github.com/iWorld-y/gh_release_notes/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
