package main

import (
	"trade-audit/internal/cli"
)

func main() {
	cli.Execute()
}
