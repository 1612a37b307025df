package main

import "productmd/internal/cli"

func main() {
	cli.Execute()
}
