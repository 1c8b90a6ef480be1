package main

import (
	"github.com/joho/godotenv"

	"solarb/internal/cli"
)

func main() {
	// A missing .env file is fine; explicit environment always wins.
	_ = godotenv.Load()

	cli.Execute()
}
