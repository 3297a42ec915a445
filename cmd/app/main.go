// Command app runs the payment admission HTTP API.
package main

import (
	"context"
	"log"

	"github.com/msdcl/payment-ledger-system-sub000/internal/bootstrap"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.NewApp(ctx)
	if err != nil {
		log.Fatalf("failed to start ledgerflow admission API: %v", err)
	}

	server := app.NewHTTPServer()

	if err := server.Listen(":" + app.Config.HTTPPort); err != nil {
		app.Logger.Errorf("http server stopped: %v", err)
	}
}
