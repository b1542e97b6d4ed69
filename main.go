package main

import "github.com/timvw/iorepl/cmd"

func main() {
	cmd.Execute()
}
