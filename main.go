package main

import (
	"os"

	"github.com/GoogleCloudPlatform/text-ql/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
