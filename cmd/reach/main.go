package main

import "github.com/felixgeelhaar/reach/cmd/reach/cli"

func main() {
	cli.Execute()
}
