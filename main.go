package main

import "github.com/kozaktomas/face-tracker/cmd"

func main() {
	cmd.Execute()
}
