package main

import (
	"fmt"
	"os"

	"github.com/set-night/newscuss/internal/cli"
)

func main() {
	app := cli.NewApp()
	err := app.CreateRootCommand().Execute()
	if cerr := app.Close(); cerr != nil {
		fmt.Fprintln(os.Stderr, cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
