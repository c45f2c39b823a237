package main

import "github.com/tansive/sessionactions/internal/cli"

func main() {
	cli.Execute()
}
