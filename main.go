// The main package for the vibe-scout executable.
package main

import (
	"github.com/wenfp108/vibe-scout/cmd"
)

func main() {
	cmd.Execute()
}
