package main

import (
	"os"

	"github.com/ippel-tech/ippel-rnc/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
