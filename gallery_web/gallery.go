package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/zpages"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/mhbvr/photorater"
	cbolt "github.com/mhbvr/photorater/catalog/bolt"
	cpebble "github.com/mhbvr/photorater/catalog/pebble"
	"github.com/mhbvr/photorater/catalog/scan"
	"github.com/mhbvr/photorater/layout"
)

type GalleryServer struct {
	reader    photorater.CatalogReader
	imageBase string
	capacity  int
	tracer    oteltrace.Tracer
	template  *template.Template
}

var (
	// HTTP instrumentation metrics
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "handler"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "handler", "code"},
	)

	httpRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	photosListed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_photos_listed_total",
			Help: "Total number of photos returned in gallery pages",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestsInFlight)
	prometheus.MustRegister(photosListed)
}

func NewGalleryServer(reader photorater.CatalogReader, imageBase string, capacity int) *GalleryServer {
	return &GalleryServer{
		reader:    reader,
		imageBase: strings.TrimSuffix(imageBase, "/"),
		capacity:  capacity,
		tracer:    otel.Tracer("gallery"),
		template:  template.Must(template.New("gallery").Parse(galleryTemplate)),
	}
}

// photoURL joins the image base with an escaped photo name.
func (gs *GalleryServer) photoURL(name string) string {
	return gs.imageBase + "/" + url.PathEscape(name)
}

// packRows lists the catalog and packs it into display rows, newest photos
// last.
func (gs *GalleryServer) packRows(ctx context.Context) ([]layout.Row, error) {
	_, span := gs.tracer.Start(ctx, "pack_rows")
	defer span.End()

	infos, err := gs.reader.ListPhotos()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}

	photos := make([]layout.Photo, len(infos))
	for i, info := range infos {
		photos[i] = layout.Photo{
			Name:        info.Name,
			URL:         gs.photoURL(info.Name),
			Orientation: info.Orientation,
		}
	}

	rows := layout.Pack(photos, gs.capacity)
	span.SetAttributes(
		attribute.Int("photos.count", len(photos)),
		attribute.Int("rows.count", len(rows)),
	)
	photosListed.Add(float64(len(photos)))
	return rows, nil
}

func (gs *GalleryServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	rows, err := gs.packRows(r.Context())
	if err != nil {
		http.Error(w, "Failed to build gallery: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	if err := gs.template.Execute(w, rows); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (gs *GalleryServer) handleRows(w http.ResponseWriter, r *http.Request) {
	rows, err := gs.packRows(r.Context())
	if err != nil {
		http.Error(w, "Failed to build gallery: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		log.Printf("Error writing rows: %v", err)
	}
}

// openReader picks the catalog backend. The scan type reads photo files
// directly, bolt and pebble read a catalog built by catalogbuilder.
func openReader(photosDir, dbPath, dbType string) (photorater.CatalogReader, error) {
	switch dbType {
	case "scan":
		if photosDir == "" {
			return nil, fmt.Errorf("scan catalog requires -photos")
		}
		return scan.NewReader(photosDir)
	case "bolt":
		if dbPath == "" {
			return nil, fmt.Errorf("bolt catalog requires -db")
		}
		return cbolt.NewReader(dbPath)
	case "pebble":
		if dbPath == "" {
			return nil, fmt.Errorf("pebble catalog requires -db")
		}
		return cpebble.NewReader(dbPath)
	default:
		return nil, fmt.Errorf("unknown catalog type: %s (must be 'scan', 'bolt', or 'pebble')", dbType)
	}
}

// responseWriterWithStatus wraps http.ResponseWriter to capture status code
type responseWriterWithStatus struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriterWithStatus) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriterWithStatus) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = 200
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// loggingMiddleware logs each HTTP request with details
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriterWithStatus{
			ResponseWriter: w,
			statusCode:     200,
		}

		clientIP := r.RemoteAddr
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			clientIP = strings.Split(xff, ",")[0]
		} else if xri := r.Header.Get("X-Real-IP"); xri != "" {
			clientIP = xri
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		log.Printf("[%s] %s %s %d %d bytes %v %s \"%s\"",
			start.Format("2006-01-02 15:04:05"),
			r.Method,
			r.URL.Path,
			rw.statusCode,
			rw.bytesWritten,
			duration,
			clientIP,
			r.UserAgent(),
		)
	})
}

func initializeTracing() (http.Handler, func(), error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String("gallery-web"),
			semconv.ServiceVersionKey.String("1.0.0"),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %v", err)
	}

	zpagesProcessor := zpages.NewSpanProcessor()

	tp := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSpanProcessor(zpagesProcessor),
		trace.WithSampler(trace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tp.Shutdown(ctx)
	}

	return zpages.NewTracezHandler(zpagesProcessor), cleanup, nil
}

// instrument wraps a handler with the shared duration, counter and in-flight
// collectors under the given handler label.
func instrument(name string, h http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(
		httpRequestDuration.MustCurryWith(prometheus.Labels{"handler": name}),
		promhttp.InstrumentHandlerCounter(
			httpRequestsTotal.MustCurryWith(prometheus.Labels{"handler": name}),
			promhttp.InstrumentHandlerInFlight(httpRequestsInFlight, h),
		),
	)
}

// SetupServer creates the HTTP server with all middleware and routes configured
func SetupServer(photosDir, dbPath, dbType, imageBase string, capacity int) (http.Handler, func(), error) {
	zpagesHandler, cleanup, err := initializeTracing()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %v", err)
	}

	reader, err := openReader(photosDir, dbPath, dbType)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	gs := NewGalleryServer(reader, imageBase, capacity)

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", instrument("index", http.HandlerFunc(gs.handleIndex)))
	mux.Handle("GET /api/rows", instrument("rows", http.HandlerFunc(gs.handleRows)))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /tracez", zpagesHandler)

	if photosDir != "" {
		mux.Handle("GET /photos/", http.StripPrefix("/photos/", http.FileServer(http.Dir(photosDir))))
	}

	handler := loggingMiddleware(otelhttp.NewHandler(mux, "request"))

	shutdown := func() {
		reader.Close()
		cleanup()
	}
	return handler, shutdown, nil
}

const galleryTemplate = `
<!DOCTYPE html>
<html>
<head>
    <title>Photo Gallery</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; background-color: #fafafa; }
        .gallery { max-width: 1200px; margin: 0 auto; }
        .row { display: flex; gap: 8px; margin-bottom: 8px; }
        .row .photo { min-width: 0; }
        .photo img { width: 100%; height: 100%; object-fit: cover; display: block; border-radius: 3px; }
    </style>
</head>
<body>
    <div class="gallery">
        <h1>Photo Gallery</h1>
        {{range .}}
        <div class="row">
            {{range .Photos}}
            <div class="photo" style="flex: {{.Orientation.Cost}}">
                <img src="{{.URL}}" alt="{{.Name}}" loading="lazy">
            </div>
            {{end}}
        </div>
        {{end}}
    </div>
</body>
</html>
`
