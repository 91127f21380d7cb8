package main

import (
	"fmt"
	"os"

	benchcmp "github.com/LyrinoxTechnologies/ridged-proto"
)

func main() {
	if err := benchcmp.RunCLI(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
