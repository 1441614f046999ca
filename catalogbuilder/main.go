// catalogbuilder scans an image directory and writes a photo catalog in
// bolt or pebble format for the gallery server.
package main

import (
	"flag"
	"log"

	"github.com/mhbvr/photorater"
	cbolt "github.com/mhbvr/photorater/catalog/bolt"
	cpebble "github.com/mhbvr/photorater/catalog/pebble"
	"github.com/mhbvr/photorater/catalog/scan"
)

var (
	photosDir = flag.String("photos", "", "Directory with photo files")
	dbPath    = flag.String("db", "", "Catalog path (file for bolt, directory for pebble)")
	dbType    = flag.String("db-type", "bolt", "Catalog type: bolt or pebble")
)

func main() {
	flag.Parse()

	if *photosDir == "" || *dbPath == "" {
		log.Fatal("Both -photos and -db flags must be specified")
	}

	infos, err := scan.ScanDir(*photosDir)
	if err != nil {
		log.Fatalf("Failed to scan photos: %v", err)
	}
	if len(infos) == 0 {
		log.Fatalf("No images found in %s", *photosDir)
	}

	var writer photorater.CatalogWriter
	switch *dbType {
	case "bolt":
		writer, err = cbolt.New(*dbPath)
	case "pebble":
		writer, err = cpebble.New(*dbPath)
	default:
		log.Fatalf("Unknown catalog type: %s (must be 'bolt' or 'pebble')", *dbType)
	}
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer writer.Close()

	if err := writer.AddPhotosBatch(infos); err != nil {
		log.Fatalf("Failed to write catalog: %v", err)
	}

	log.Printf("Catalog ready: %d photos in %s (%s)", len(infos), *dbPath, *dbType)
}
