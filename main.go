package main

import "github.com/emsysdev/accelspec/cmd"

func main() {
	cmd.Execute()
}
