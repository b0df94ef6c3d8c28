package main

import (
	"context"
	"log"

	"github.com/dpetrenko/filekeeper/internal/devserver"
	"github.com/dpetrenko/filekeeper/internal/devserver/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := devserver.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
