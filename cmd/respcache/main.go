// Package main provides the entry point for the respcache CLI.
package main

import (
	"github.com/iTrooz/respcache/internal/cli"
)

func main() {
	cli.Execute()
}
