package main

import (
	"os"

	"github.com/cwbudde/go-ecma/cmd/goecma/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
