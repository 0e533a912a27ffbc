package main

import (
	"log"

	"github.com/tech-arch1tect/authapi"
)

func main() {
	a, err := authapi.New()
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := a.Run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
