package main

import "github.com/chbrown/sql-patch/internal/cli"

func main() {
	cli.Execute()
}
