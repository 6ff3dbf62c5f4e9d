package main

import "rootrelay/internal/cli"

func main() {
	cli.Execute()
}
