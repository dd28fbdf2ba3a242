package main

import (
	"os"

	"github.com/d0ngw/blogviews/cmd/blogviews/commands"
)

func main() {
	if err := commands.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
