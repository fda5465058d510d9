package main

import "p2pool-monitor/internal/cli"

func main() {
	cli.Execute()
}
