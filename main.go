package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"pricewatch/pkg/api"
	"pricewatch/pkg/cache"
	"pricewatch/pkg/logger"
	"pricewatch/pkg/models"
	"pricewatch/pkg/scraper"

	scalargo "github.com/bdpiprava/scalar-go"
)

var (
	scrapeSemaphore = make(chan struct{}, 3)
	productCache    *cache.Cache
	extractor       = scraper.NewScraper(scraper.DefaultConfig())
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	dbPath := os.Getenv("CACHE_DB_PATH")
	if dbPath == "" {
		dbPath = "./cache.db"
	}

	ttlMinutes := 1440
	if val := os.Getenv("CACHE_TTL_MINUTES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			ttlMinutes = parsed
		}
	}

	if os.Getenv("RENDER_PAGES") == "1" {
		cfg := scraper.DefaultConfig()
		cfg.RenderPages = true
		extractor = scraper.NewScraper(cfg)
		log.Print("Page fetches will go through headless Chrome")
	}

	var err error
	productCache, err = cache.New(dbPath, time.Duration(ttlMinutes)*time.Minute)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer productCache.Close()

	log.Printf("Cache initialized at %s with TTL %d minutes", dbPath, ttlMinutes)

	http.HandleFunc("/", rootHandler)

	ip := GetOutboundIP()
	if ip != nil {
		fmt.Printf("Local Network URL: http://%s:%s\n", ip.String(), port)
	} else {
		fmt.Println("Could not determine local IP address.")
	}
	fmt.Printf("Access URL: http://localhost:%s\n", port)
	fmt.Printf("API Docs: http://localhost:%s/\n", port)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           nil,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Fatal(server.ListenAndServe())
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	// API requests go to the extraction handler
	if strings.HasPrefix(r.URL.Path, "/products/") {
		extractHandler(w, r)
		return
	}

	// Serve Scalar docs on root path
	html, err := scalargo.NewV2(
		scalargo.WithSpecDir("./"),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("Pricewatch API"),
		),
	)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func GetOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		addrs, _ := net.InterfaceAddrs()
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					return ipnet.IP
				}
			}
		}
		return nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP
}

func extractHandler(w http.ResponseWriter, r *http.Request) {
	// Paths: /products/extract?url={url} and /products/extract/batch
	switch strings.TrimSuffix(r.URL.Path, "/") {
	case "/products/extract":
		handleExtract(w, r)
	case "/products/extract/batch":
		handleBatchExtract(w, r)
	default:
		api.WriteBadRequest(w, "Invalid path. Expected /products/extract?url={url} or /products/extract/batch", r.URL.Path)
	}
}

func handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteBadRequest(w, "Method not allowed. Use GET for single extraction.", r.URL.Path)
		return
	}

	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		api.WriteBadRequest(w, "Missing required query parameter: url", r.URL.Path)
		return
	}
	if !validProductURL(rawURL) {
		api.WriteBadRequest(w, fmt.Sprintf("Invalid product URL: %s", rawURL), r.URL.Path)
		return
	}

	// Acquire semaphore to prevent system overload
	scrapeSemaphore <- struct{}{}
	defer func() { <-scrapeSemaphore }()

	product, err := getProduct(rawURL)

	if err != nil {
		log.Printf("Error extracting %s: %v", rawURL, err)

		if errors.Is(err, models.ErrProductNotFound) {
			api.WriteNotFound(w, "No product data could be extracted from this URL", r.URL.Path)
			return
		}

		if isTimeout(err) {
			api.WriteGatewayTimeout(w, "Upstream service timed out: "+err.Error(), r.URL.Path)
			return
		}

		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(product); err != nil {
		log.Printf("Error encoding response: %v", err)
		api.WriteInternalServerError(w, fmt.Errorf("failed to encode response"), r.URL.Path)
	}
}

func handleBatchExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.WriteBadRequest(w, "Method not allowed for batch endpoint. Use POST.", r.URL.Path)
		return
	}

	var batch []map[string]any
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		api.WriteBadRequest(w, "Invalid JSON body. Expected array of objects.", r.URL.Path)
		return
	}
	defer r.Body.Close()

	for _, item := range batch {
		rawURL, ok := item["url"].(string)
		if !ok || rawURL == "" {
			item["result"] = map[string]string{"error": "missing url"}
			continue
		}
		if !validProductURL(rawURL) {
			item["result"] = map[string]string{"error": "invalid product URL"}
			continue
		}

		scrapeSemaphore <- struct{}{}
		product, err := getProduct(rawURL)
		<-scrapeSemaphore

		if err != nil {
			if errors.Is(err, models.ErrProductNotFound) {
				item["result"] = map[string]string{"error": "Product not found"}
			} else if isTimeout(err) {
				item["result"] = map[string]string{"error": "Gateway Timeout"}
			} else {
				item["result"] = map[string]string{"error": err.Error()}
			}
		} else {
			item["result"] = product
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(batch); err != nil {
		log.Printf("Error encoding batch response: %v", err)
		api.WriteInternalServerError(w, fmt.Errorf("failed to encode response"), r.URL.Path)
	}
}

func getProduct(rawURL string) (*models.Product, error) {
	if productCache != nil {
		if cached, ok := productCache.Get(rawURL); ok {
			logger.Dedup("Cache hit for %s", rawURL)
			return cached, nil
		}
	}

	rec, err := extractor.Extract(rawURL)
	if err != nil {
		return nil, err
	}

	product := models.NewProduct(rawURL, scraper.ExtractProductID(rawURL), rec)
	if productCache != nil {
		productCache.Set(rawURL, product)
	}
	return product, nil
}

func validProductURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isTimeout(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "Client.Timeout") ||
		strings.Contains(msg, "timeout")
}
