package main

import "github.com/vietddude/crashwatch/internal/cli"

func main() {
	cli.Execute()
}
