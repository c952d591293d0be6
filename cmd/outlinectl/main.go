package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/outlinebot/internal/bot/config"
	"github.com/dmitrijs2005/outlinebot/internal/ctl"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := ctl.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
