// Command probe issues a single request (or health check) against a
// configured upstream through the resilient executor, so retry, rate-limit,
// and classification behavior can be exercised from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"saasbridge-go/internal/apierr"
	"saasbridge-go/internal/config"
	"saasbridge-go/internal/logging"
	"saasbridge-go/internal/monitoring/tracing"
	"saasbridge-go/internal/upstream"
	"saasbridge-go/internal/upstream/auth"
	"saasbridge-go/internal/version"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug mode")
	method := flag.String("method", http.MethodGet, "HTTP method")
	path := flag.String("path", "/", "Request path relative to the base URL")
	query := flag.String("query", "", "Query string, e.g. maxRecords=3&view=Grid")
	body := flag.String("body", "", "Request body (JSON)")
	apiKeyHeader := flag.String("api-key-header", "", "Header name for API key auth (e.g. X-API-Key)")
	apiKey := flag.String("api-key", "", "API key or bearer token value")
	health := flag.Bool("health", false, "Run a health check instead of a request")
	flag.Parse()

	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if *debug {
		cfg.Security.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := logging.Setup(cfg); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	traceShutdown, err := tracing.Init(context.Background())
	if err != nil {
		log.WithError(err).Warn("failed to initialize tracing")
	}
	if traceShutdown != nil {
		defer func() {
			if err := traceShutdown(context.Background()); err != nil {
				log.WithError(err).Warn("failed to shutdown tracing")
			}
		}()
	}

	log.WithFields(log.Fields{
		"version":  version.Version,
		"provider": cfg.Client.Provider,
		"base_url": cfg.Client.BaseURL,
	}).Info("probe starting")

	var opts []upstream.Option
	if *apiKey != "" {
		if *apiKeyHeader != "" {
			opts = append(opts, upstream.WithHeaderSource(&auth.APIKey{Header: *apiKeyHeader, Value: *apiKey}))
		} else {
			opts = append(opts, upstream.WithHeaderSource(auth.Bearer(*apiKey)))
		}
	}
	client := upstream.New(cfg, opts...)

	ctx := context.Background()
	if *health {
		report := client.HealthCheck(ctx)
		printJSON(report)
		if !report.Healthy {
			os.Exit(1)
		}
		return
	}

	q, err := url.ParseQuery(*query)
	if err != nil {
		log.WithError(err).Fatal("invalid query string")
	}
	spec := &upstream.RequestSpec{
		Method: strings.ToUpper(*method),
		Path:   *path,
		Query:  q,
	}
	if *body != "" {
		spec.Body = []byte(*body)
	}

	res, err := client.Do(ctx, spec)
	if err != nil {
		if apiErr, ok := apierr.As(err); ok {
			printJSON(map[string]any{
				"kind":        apiErr.Kind,
				"status":      apiErr.HTTPStatus,
				"code":        apiErr.Code,
				"message":     apiErr.Message,
				"retry_after": apiErr.RetryAfter.String(),
			})
			os.Exit(1)
		}
		log.WithError(err).Fatal("request failed")
	}

	fmt.Fprintf(os.Stderr, "status=%d attempts=%d request_id=%s\n",
		res.StatusCode, res.Attempts, res.RequestID)
	if len(res.Body) > 0 {
		var pretty any
		if json.Unmarshal(res.Body, &pretty) == nil {
			printJSON(pretty)
		} else {
			_, _ = os.Stdout.Write(res.Body)
			fmt.Println()
		}
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.WithError(err).Fatal("failed to encode output")
	}
	fmt.Println(string(out))
}
