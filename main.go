package main

import "github.com/jmehdipour/growth-tracker/cmd"

func main() {
	cmd.Execute()
}
