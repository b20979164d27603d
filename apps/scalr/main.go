package main

import "github.com/rkreddybogati/scalr/internal/cli"

func main() {
	cli.Execute()
}
