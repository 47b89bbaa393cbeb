package main

import "github.com/rustyeddy/volatility/internal/cli"

func main() {
	cli.Execute()
}
