package main

import (
	"github.com/dl-alexandre/phonesync/internal/cli"
)

func main() {
	_ = cli.Execute()
}
