// Command vapordomain evaluates site scripts into adaptive grid documents,
// tessellates them and keeps them in a SQLite store.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
