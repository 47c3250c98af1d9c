// Command crawl-customers exports the customer list of a booking-platform
// shop and splits it into rows sharing a phone number and unique rows.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(defaultApp()).ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("Crawl failed")
		os.Exit(1)
	}
}
