package main

import "github.com/grid-sim/grid-sim/cmd"

func main() {
	cmd.Execute()
}
