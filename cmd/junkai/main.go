package main

import (
	"os"

	"github.com/JonMunkholm/junkai/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
