package main

import "github.com/aldikteam/aldikbot/cmd"

func main() {
	cmd.Execute()
}
