package main

import "github.com/freedm/ipcd/cmd"

func main() {
	cmd.Execute()
}
