package main

import (
	"os"

	"github.com/nlcraft/kgrag/cmd/kgrag"
)

func main() {
	if err := kgrag.Execute(); err != nil {
		os.Exit(1)
	}
}
