package main

import "github.com/ogulcanaydogan/restock-guardian/internal/cli"

func main() {
	cli.Execute()
}
