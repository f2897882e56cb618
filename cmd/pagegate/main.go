package main

import "github.com/ppiankov/pagegate/internal/cli"

func main() {
	cli.Execute()
}
