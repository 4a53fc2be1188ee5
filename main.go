package main

import (
	"github.com/7blacky7/ki-browser-standalone/cmd"
)

func main() {
	cmd.Execute()
}
