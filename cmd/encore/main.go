package main

import (
	"os"

	"soundcheck.se/encore/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
