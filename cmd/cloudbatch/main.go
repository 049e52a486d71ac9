// Command cloudbatch runs object-storage operations as concurrent batches.
//
//	cloudbatch stat photos/cat.jpg photos/dog.jpg
//	cloudbatch move inbox/a.txt archive/a.txt
//
// Configuration is read from config.yml (or --config), a .env file
// and CLOUDBATCH_* environment variables, in that order.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cloudbatch:", err)
		os.Exit(1)
	}
}
