// Package main is the entry point for the pixelmc charge-carrier
// propagation tool.
package main

import (
	"pixelmc/cmd"
)

func main() {
	cmd.Execute()
}
