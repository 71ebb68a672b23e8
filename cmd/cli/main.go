// Command cli is a small client for the cost forecast engine API.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"cost-forecast-engine/api"
	"cost-forecast-engine/forecast"
)

const (
	defaultServerURL = "http://localhost:8080"
	version          = "0.1.0"
)

type cliConfig struct {
	serverURL string
	token     string
	verbose   bool
}

func main() {
	var (
		serverURL = flag.String("server", defaultServerURL, "Forecast server URL")
		token     = flag.String("token", os.Getenv("FCENGINE_TOKEN"), "Bearer token for authenticated servers")
		verbose   = flag.Bool("v", false, "Verbose output")
		command   = flag.String("cmd", "", "Command to execute")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || *command == "" {
		showHelp()
		return
	}

	cfg := cliConfig{serverURL: *serverURL, token: *token, verbose: *verbose}
	args := flag.Args()

	switch *command {
	case "create":
		handleCreate(cfg, args)
	case "ingest":
		handleIngest(cfg, args)
	case "forecast":
		handleForecast(cfg, args)
	case "series":
		handleSeries(cfg)
	case "points":
		handlePoints(cfg, args)
	case "backends":
		handleBackends(cfg)
	case "health":
		handleHealth(cfg)
	case "token":
		handleToken(args)
	default:
		fmt.Printf("Unknown command: %s\n", *command)
		showHelp()
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Printf(`Cost Forecast Engine CLI v%s

Usage: cli -cmd <command> [options] [args]

Commands:
  create <id> [granularity]          Create a series (daily or monthly)
  ingest <id> <timestamp> <value>    Append one observation (RFC3339 timestamp)
  points <id>                        Show stored points
  forecast <id> <algorithms> [h]     Run forecasts, e.g. "sma,es,ensemble" 30
  series                             List series
  backends                           Show backend availability
  health                             Server health
  token <secret> <subject>           Mint an access token

Options:
  -server <url>   Server URL (default %s)
  -token <jwt>    Bearer token (or FCENGINE_TOKEN)
  -v              Verbose output
`, version, defaultServerURL)
}

func handleCreate(cfg cliConfig, args []string) {
	if len(args) < 1 {
		fatal("usage: create <id> [granularity]")
	}
	granularity := "daily"
	if len(args) > 1 {
		granularity = args[1]
	}
	body := map[string]interface{}{"id": args[0], "granularity": granularity}
	resp := request(cfg, "POST", "/api/v1/series", body)
	fmt.Println(resp)
}

func handleIngest(cfg cliConfig, args []string) {
	if len(args) < 3 {
		fatal("usage: ingest <id> <timestamp> <value>")
	}
	value, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		fatal("invalid value: %v", err)
	}
	body := map[string]interface{}{
		"points": []map[string]interface{}{
			{"timestamp": args[1], "value": value},
		},
	}
	resp := request(cfg, "POST", "/api/v1/series/"+args[0]+"/points", body)
	fmt.Println(resp)
}

func handlePoints(cfg cliConfig, args []string) {
	if len(args) < 1 {
		fatal("usage: points <id>")
	}
	fmt.Println(request(cfg, "GET", "/api/v1/series/"+args[0], nil))
}

func handleForecast(cfg cliConfig, args []string) {
	if len(args) < 2 {
		fatal("usage: forecast <id> <algorithms> [horizon]")
	}
	horizon := 0
	if len(args) > 2 {
		h, err := strconv.Atoi(args[2])
		if err != nil {
			fatal("invalid horizon: %v", err)
		}
		horizon = h
	}

	var specs []forecast.AlgorithmSpec
	wantEnsemble := false
	for _, name := range strings.Split(args[1], ",") {
		id := forecast.AlgorithmID(strings.TrimSpace(name))
		if id == forecast.AlgorithmEnsemble {
			wantEnsemble = true
		}
		specs = append(specs, forecast.AlgorithmSpec{ID: id})
	}
	if wantEnsemble {
		// Every requested algorithm contributes to the ensemble mean.
		for i := range specs {
			if specs[i].ID != forecast.AlgorithmEnsemble {
				specs[i].Ensemble = true
			}
		}
	}

	body := map[string]interface{}{
		"horizon":           horizon,
		"algorithms":        specs,
		"milestone_summary": true,
	}
	fmt.Println(request(cfg, "POST", "/api/v1/series/"+args[0]+"/forecast", body))
}

func handleSeries(cfg cliConfig) {
	fmt.Println(request(cfg, "GET", "/api/v1/series", nil))
}

func handleBackends(cfg cliConfig) {
	fmt.Println(request(cfg, "GET", "/api/v1/backends", nil))
}

func handleHealth(cfg cliConfig) {
	fmt.Println(request(cfg, "GET", "/health", nil))
}

func handleToken(args []string) {
	if len(args) < 2 {
		fatal("usage: token <secret> <subject>")
	}
	token, err := api.IssueToken(args[0], args[1], 24*time.Hour)
	if err != nil {
		fatal("token: %v", err)
	}
	fmt.Println(token)
}

func request(cfg cliConfig, method, path string, body interface{}) string {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			fatal("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, cfg.serverURL+path, reader)
	if err != nil {
		fatal("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.token)
	}

	if cfg.verbose {
		fmt.Fprintf(os.Stderr, "> %s %s\n", method, cfg.serverURL+path)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fatal("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal("read response: %v", err)
	}
	if resp.StatusCode >= 400 {
		fatal("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return string(data)
	}
	return pretty.String()
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
