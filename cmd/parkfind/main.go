package main

import "github.com/parkfind/parkfind/cmd/parkfind/command"

func main() {
	command.Execute()
}
