package main

import (
	"os"

	"github.com/dshills/compsite/internal/cli"
	"github.com/dshills/compsite/internal/logging"
)

func main() {
	logging.Init("error")
	os.Exit(cli.Run())
}
