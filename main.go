package main

import "wallet-bot/internal/cli"

func main() {
	cli.Execute()
}
