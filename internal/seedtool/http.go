package seedtool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with a timeout.
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with a timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	resp, err := c.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	return resp, nil
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", url, err)
	}
	return resp, nil
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// submitObservations submits observations concurrently using a worker pool.
func submitObservations(ctx context.Context, config *Config, observations []Observation, stats *Stats) error {
	log.Printf("submitting %d observations with %d workers...", len(observations), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/observations"

	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	var lastReport time.Time
	reportInterval := 1 * time.Second

	obsChan := make(chan Observation, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for o := range obsChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleObservation(client, url, o)

					atomic.AddInt64(&submitted, 1)
					switch result {
					case "success":
						atomic.AddInt64(&successful, 1)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						log.Printf("progress: %d/%d submitted (success: %d, duplicate: %d, failed: %d)",
							total, len(observations),
							atomic.LoadInt64(&successful),
							atomic.LoadInt64(&duplicate),
							atomic.LoadInt64(&failed))
					}
				}
			}
		}()
	}

	go func() {
		defer close(obsChan)
		for _, o := range observations {
			select {
			case <-ctx.Done():
				return
			case obsChan <- o:
			}
		}
	}()

	wg.Wait()

	stats.ObservationsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.ObservationsSuccessful = int(atomic.LoadInt64(&successful))
	stats.ObservationsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.ObservationsFailed = int(atomic.LoadInt64(&failed))

	log.Printf("submission completed: successful=%d duplicate=%d failed=%d",
		stats.ObservationsSuccessful, stats.ObservationsDuplicate, stats.ObservationsFailed)

	return nil
}

// submitSingleObservation submits one observation and classifies the result.
func submitSingleObservation(client *HTTPClient, url string, o Observation) string {
	resp, err := client.Post(url, o)
	if err != nil {
		return "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case StatusAccepted:
		return "success"
	case StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "duplicate"
	default:
		return "failed"
	}
}
