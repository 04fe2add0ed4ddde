package seedtool

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// retrieveGroups fetches the per-group entries for every seeded group
// concurrently.
func retrieveGroups(ctx context.Context, config *Config, plans []GroupPlan, stats *Stats) (map[string]GroupEntry, error) {
	log.Printf("retrieving %d groups with %d workers...", len(plans), config.Workers)

	client := newHTTPClient(config.Timeout)

	var mu sync.Mutex
	entries := make(map[string]GroupEntry, len(plans))
	var failed int64

	planChan := make(chan GroupPlan, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for plan := range planChan {
				select {
				case <-ctx.Done():
					return
				default:
					entry, err := retrieveSingleGroup(client, config.BaseURL, plan.Group)
					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("failed to get group %s: %v", plan.Group, err)
						}
						continue
					}
					mu.Lock()
					entries[plan.Group] = entry
					mu.Unlock()
				}
			}
		}()
	}

	go func() {
		defer close(planChan)
		for _, plan := range plans {
			select {
			case <-ctx.Done():
				return
			case planChan <- plan:
			}
		}
	}()

	wg.Wait()

	stats.GroupsRetrieved = len(entries)
	log.Printf("group retrieval completed: retrieved=%d failed=%d", len(entries), int(atomic.LoadInt64(&failed)))

	return entries, nil
}

// retrieveSingleGroup fetches one group entry.
func retrieveSingleGroup(client *HTTPClient, baseURL, group string) (GroupEntry, error) {
	url := fmt.Sprintf("%s/groups/%s", baseURL, group)

	resp, err := client.Get(url)
	if err != nil {
		return GroupEntry{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return GroupEntry{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return GroupEntry{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var entry GroupEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		return GroupEntry{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return entry, nil
}

// getListing retrieves the top N entries of the ranked group listing.
func getListing(_ context.Context, config *Config, stats *Stats) ([]GroupEntry, error) {
	log.Printf("getting top %d listing entries...", config.TopN)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/groups?limit=%d", config.BaseURL, config.TopN)

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var listing []GroupEntry
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.ListingEntries = len(listing)
	log.Printf("retrieved %d listing entries", len(listing))

	return listing, nil
}

// retrieveExplanations fetches the index explanation table.
func retrieveExplanations(_ context.Context, config *Config) ([]Explanation, error) {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/explain"

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var explanations []Explanation
	if err := json.Unmarshal(body, &explanations); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return explanations, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(_ context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	// Any 200 is healthy; the endpoint serves Prometheus metrics.
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// waitForProcessing gives the service time to drain the queue.
func waitForProcessing(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(ProcessingDelay):
	}
}
