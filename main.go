// Package main is the entry point for the jumpscan CLI.
package main

import "jumpscan.dev/pkg/jumpscan/cmd"

func main() {
	cmd.Execute()
}
