// Command codesleuth is the CLI host for the indexing and query pipeline:
// clone/update a repo, chunk and embed it into Qdrant, then answer
// questions against it.
package main

import (
	"log"
	"os"

	"github.com/FreddyJ01/CodeSleuth/cmd/codesleuth/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
