// client_web hosts the rater frontend: it owns the vote orchestration
// session and exposes it as a small web UI with click and keyboard input.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mhbvr/photorater/rater"
)

var (
	apiAddr   = flag.String("api", "http://localhost:5001", "Rating service base URL")
	webPort   = flag.Int("port", 8080, "Web server port")
	opTimeout = flag.Duration("timeout", 10*time.Second, "Timeout for rating service round-trips")
	noPreload = flag.Bool("no-preload", false, "Skip image preloading before a pair is shown")
)

func main() {
	flag.Parse()

	tracezHandler, cleanup, err := InitializeTracing()
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer cleanup()

	client := rater.NewClient(*apiAddr)

	var pre rater.Preloader
	if !*noPreload {
		pre, err = rater.NewHTTPPreloader(*apiAddr)
		if err != nil {
			log.Fatalf("Failed to create preloader: %v", err)
		}
	}

	session, err := rater.NewSession(context.Background(), client, pre,
		rater.WithTimeout(*opTimeout),
		rater.WithLogger(log.Default()))
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	defer session.Close()

	handler := NewWebHandler(session, *apiAddr, tracezHandler)

	addr := fmt.Sprintf(":%d", *webPort)
	log.Printf("Rater web client starting on http://localhost%s", addr)
	log.Printf("Rating service at %s", *apiAddr)

	if err := http.ListenAndServe(addr, handler.HttpMux()); err != nil {
		log.Fatalf("Web server failed: %v", err)
	}
}
