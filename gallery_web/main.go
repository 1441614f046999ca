// gallery_web renders the photo catalog as rows packed by orientation.
package main

import (
	"flag"
	"log"
	"net/http"
)

func main() {
	var (
		addr      = flag.String("addr", ":8090", "Address to listen on")
		photosDir = flag.String("photos", "", "Directory with photo files (scan type, also served at /photos/)")
		dbPath    = flag.String("db", "", "Catalog path (file for bolt, directory for pebble)")
		dbType    = flag.String("db-type", "scan", "Catalog type: scan, bolt, or pebble")
		imageBase = flag.String("image-base", "/photos", "Base URL for photo images")
		capacity  = flag.Int("capacity", 0, "Row capacity in layout units (0 = default)")
	)
	flag.Parse()

	handler, cleanup, err := SetupServer(*photosDir, *dbPath, *dbType, *imageBase, *capacity)
	if err != nil {
		log.Fatalf("Failed to setup server: %v", err)
	}
	defer cleanup()

	log.Printf("Starting gallery server on %s (catalog: %s)", *addr, *dbType)
	log.Printf("Endpoints:")
	log.Printf("  GET / - Gallery page")
	log.Printf("  GET /api/rows - Packed rows as JSON")
	log.Printf("  GET /metrics - Prometheus metrics")
	log.Printf("  GET /tracez - OpenTelemetry trace debugging")

	if err := http.ListenAndServe(*addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
