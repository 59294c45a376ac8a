package main

import "github.com/forPelevin/autocut/internal/cli"

func main() {
	cli.Main()
}
