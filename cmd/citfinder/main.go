// CitFinder - citrullination detection and quantification tool
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/CitFinder/cmd/citfinder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
