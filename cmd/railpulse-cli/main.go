package main

import "github.com/bobmcallan/railpulse-portal/internal/cli"

func main() {
	cli.Execute()
}
