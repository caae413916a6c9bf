package main

import (
	"github.com/njordb/njord/cmd/njord/cmd"
)

func main() {
	cmd.Execute()
}
