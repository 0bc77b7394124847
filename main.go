// pfis - Information-foraging navigation prediction.
//
// pfis replays a recorded programming session, grows a knowledge graph of
// the code the programmer has seen, and ranks where they will navigate next
// with PFIS spreading activation and baseline predictors.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/pfis-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
