package main

import "github.com/desiderantes/stew/internal/cli"

func main() {
	cli.Execute()
}
