// Life Event Planner server - plan lifecycle API and reminder pipeline.
package main

import (
	"log"

	"github.com/lifeplan/service/pkg/server"
)

func main() {
	srv, err := server.New()
	if err != nil {
		log.Fatalf("failed to initialize server: %v", err)
	}

	if err := srv.Run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
