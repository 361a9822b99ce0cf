// Command kage is a terminal client for the kage life log.
package main

import "github.com/xvierd/kage-cli/cmd"

func main() {
	cmd.Execute()
}
