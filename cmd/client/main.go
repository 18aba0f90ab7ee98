package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/watchlist-auth/internal/client/cli"
	"github.com/dmitrijs2005/watchlist-auth/internal/client/config"
	"github.com/dmitrijs2005/watchlist-auth/internal/flagx"
)

func main() {

	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	args := flagx.Positional(os.Args[1:], config.KnownFlags())
	if err := app.Run(context.Background(), args); err != nil {
		log.Fatalf("%v", err)
	}

}
