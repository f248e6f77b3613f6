package main

import "jobshell/internal/cli"

func main() {
	cli.Execute()
}
