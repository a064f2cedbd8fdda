package main

import (
	"context"
	"log"
	"os"

	"github.com/bitterfly/go-chaos/onetomany/database"
	"github.com/bitterfly/go-chaos/onetomany/inspect"
)

func main() {
	ctx := context.Background()

	cfg, derr := database.LoadConfig()
	if derr != nil {
		log.Fatalf("Could not load config: %s", derr)
	}

	db, derr := database.Open(cfg)
	if derr != nil {
		log.Fatalf("Could not open %s: %s", cfg, derr)
	}
	defer database.Close(db)
	log.Printf("Connected to database %s.", cfg)

	session := database.NewSession(db)
	ok, derr := session.HasSchema(ctx)
	if derr != nil {
		log.Fatalf("Could not read %s: %s", cfg, derr)
	}
	if !ok {
		log.Printf("The store has no games or reviews table.")
	}

	shell, restore, err := inspect.Attach(session, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("Could not attach to the terminal: %s", err)
	}
	defer restore()

	if err := shell.Run(ctx); err != nil {
		restore()
		log.Fatalf("Session ended: %s", err)
	}
}
