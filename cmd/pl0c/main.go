package main

import (
	"fmt"
	"os"

	"github.com/sweeter-byte/extended-pl0-compiler/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(4)
	}
}
