// Command test-events drives a running matchday instance with synthetic
// traffic: it registers a team, materializes the next match, and floods the
// confirmations endpoint with randomized votes, including deliberate
// duplicate deliveries to exercise the idempotency gate.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	defaultNumEvents    = 1000
	defaultWorkers      = 8
	defaultDuplicatePct = 10
	defaultTimeout      = 10 * time.Second
)

var voteValues = []string{"going", "not_going", "undecided", "+1", "-1"}

type client struct {
	baseURL string
	http    *http.Client
}

func (c *client) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:8080", "Base URL of the service")
		teamID       = flag.String("team", "load-test-team", "Team id to register and flood")
		numEvents    = flag.Int("events", defaultNumEvents, "Number of confirmations to submit")
		workers      = flag.Int("workers", defaultWorkers, "Number of concurrent submitters")
		duplicatePct = flag.Int("duplicates", defaultDuplicatePct, "Percentage of deliveries that reuse a previous update id")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
	)
	flag.Parse()

	ctx := context.Background()
	c := &client{baseURL: *baseURL, http: &http.Client{Timeout: *timeout}}

	if _, err := c.postJSON(ctx, "/teams/ensure", map[string]string{
		"team_id": *teamID,
		"name":    "Load Test",
	}, nil); err != nil {
		fail("register team", err)
	}

	var matchResp struct {
		MatchID string `json:"match_id"`
		Date    string `json:"date"`
	}
	if _, err := c.postJSON(ctx, "/matches/next", map[string]string{
		"team_id": *teamID,
	}, &matchResp); err != nil {
		fail("request next match", err)
	}
	fmt.Printf("target match %s on %s\n", matchResp.MatchID, matchResp.Date)

	var accepted, duplicates, rejected, failed atomic.Int64
	var seenMu sync.Mutex
	var seenIDs []string

	jobs := make(chan int)
	var wg sync.WaitGroup
	start := time.Now()

	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for i := range jobs {
				updateID := uuid.NewString()
				if rng.Intn(100) < *duplicatePct {
					seenMu.Lock()
					if len(seenIDs) > 0 {
						updateID = seenIDs[rng.Intn(len(seenIDs))]
					}
					seenMu.Unlock()
				} else {
					seenMu.Lock()
					seenIDs = append(seenIDs, updateID)
					seenMu.Unlock()
				}

				var ack struct {
					Status    string `json:"status"`
					Duplicate bool   `json:"duplicate"`
				}
				status, err := c.postJSON(ctx, "/confirmations", map[string]string{
					"update_id":     updateID,
					"team_id":       *teamID,
					"match_id":      matchResp.MatchID,
					"player_name":   fmt.Sprintf("Player %d", i%50),
					"player_handle": fmt.Sprintf("@player%d", i%50),
					"value":         voteValues[rng.Intn(len(voteValues))],
				}, &ack)

				switch {
				case err != nil:
					failed.Add(1)
				case ack.Duplicate:
					duplicates.Add(1)
				case status == http.StatusAccepted:
					accepted.Add(1)
				default:
					rejected.Add(1)
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}

	for i := 0; i < *numEvents; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)
	fmt.Printf("submitted %d confirmations in %s (%.0f/s)\n",
		*numEvents, elapsed.Round(time.Millisecond), float64(*numEvents)/elapsed.Seconds())
	fmt.Printf("accepted=%d duplicates=%d rejected=%d failed=%d\n",
		accepted.Load(), duplicates.Load(), rejected.Load(), failed.Load())

	statsURL := fmt.Sprintf("%s/matches/stats?team_id=%s&match_id=%s", *baseURL, *teamID, matchResp.MatchID)
	resp, err := c.http.Get(statsURL)
	if err != nil {
		fail("fetch stats", err)
	}
	defer resp.Body.Close()

	var pretty map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&pretty); err != nil {
		fail("decode stats", err)
	}
	rendered, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Printf("final stats:\n%s\n", rendered)
}

func fail(op string, err error) {
	os.Stderr.WriteString(op + ": " + err.Error() + "\n")
	os.Exit(1)
}
