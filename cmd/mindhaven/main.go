package main

import (
	"log"

	"github.com/MrSnakeDoc/mindhaven/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ mindhaven failed to start: %v", err)
	}
}
