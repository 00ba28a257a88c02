package main

import (
	"os"

	"yqhp/loadtest-engine/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
