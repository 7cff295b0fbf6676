package main

import "github.com/forPelevin/subcut/internal/cli"

func main() {
	cli.Main()
}
