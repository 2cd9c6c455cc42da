package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/learnora/academy-api/utils/cache"
)

const (
	// DefaultEndpoint is the IP geolocation lookup base URL
	DefaultEndpoint = "http://ip-api.com/json"
	// DefaultTimeout bounds the lookup; checkout must never block on it
	DefaultTimeout = 3 * time.Second
	// cacheTTL is how long a resolved IP→country mapping is kept in Redis
	cacheTTL = 24 * time.Hour
)

// Client resolves an IP address to an ISO country code, best-effort.
// Lookups are cached in Redis so repeat checkouts from the same address
// skip the network round trip.
type Client struct {
	endpoint   string
	httpClient *http.Client
	cache      *cache.RedisCache
}

// Config holds configuration for the geolocation client
type Config struct {
	Endpoint string
	Timeout  time.Duration
	Cache    *cache.RedisCache // Optional
}

// NewClient creates a new geolocation client
func NewClient(config Config) *Client {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		endpoint: config.Endpoint,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		cache: config.Cache,
	}
}

type lookupResponse struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
	Message     string `json:"message"`
}

// CountryForIP resolves ip to a two-letter country code. It returns "" on
// any failure: callers fall back to the buyer's profile country, and tax
// resolution treats "" as "no country". It never returns an error because
// geolocation is a best-effort, never-blocking concern.
func (c *Client) CountryForIP(ctx context.Context, ip string) string {
	if ip == "" {
		return ""
	}

	cacheKey := "geoip:" + ip
	if c.cache != nil {
		if country, err := c.cache.Get(ctx, cacheKey); err == nil {
			return country
		}
	}

	country, err := c.lookup(ctx, ip)
	if err != nil {
		log.Printf("Geolocation lookup failed for %s: %v", ip, err)
		return ""
	}

	if c.cache != nil && country != "" {
		if err := c.cache.Set(ctx, cacheKey, country, cacheTTL); err != nil {
			log.Printf("Failed to cache geolocation for %s: %v", ip, err)
		}
	}

	return country
}

func (c *Client) lookup(ctx context.Context, ip string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=status,countryCode,message", c.endpoint, url.PathEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode lookup response: %w", err)
	}

	if body.Status != "success" {
		return "", fmt.Errorf("lookup rejected: %s", body.Message)
	}

	return body.CountryCode, nil
}
