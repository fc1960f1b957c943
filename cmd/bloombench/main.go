package main

import "github.com/jcalabro/dhbloom/internal/cli"

func main() {
	cli.Execute()
}
