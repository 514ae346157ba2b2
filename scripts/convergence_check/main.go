package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

type event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	StartDate time.Time `json:"start_date"`
}

type envelope struct {
	Data  []event `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type report struct {
	Missing []string
	Extra   []string
	Changed []string
}

func (r report) converged() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0 && len(r.Changed) == 0
}

func main() {
	var (
		base     string
		attempts int
		interval time.Duration
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "Dayboard API base URL")
	flag.IntVar(&attempts, "attempts", 5, "Comparisons before giving up")
	flag.DurationVar(&interval, "interval", 2*time.Second, "Wait between attempts")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}
	var last report
	for i := 1; i <= attempts; i++ {
		live, err := fetch(client, base, "live")
		if err != nil {
			log.Fatalf("live collection: %v", err)
		}
		remote, err := fetch(client, base, "remote")
		if err != nil {
			log.Fatalf("events table: %v", err)
		}
		last = diff(live, remote)
		if last.converged() {
			fmt.Printf("Converged after %d attempt(s): %d events\n", i, len(remote))
			return
		}
		if i < attempts {
			time.Sleep(interval)
		}
	}

	printReport(last)
	os.Exit(1)
}

func fetch(client *http.Client, base, source string) ([]event, error) {
	url := strings.TrimRight(base, "/") + "/events?source=" + source
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if env.Error != nil {
		return nil, fmt.Errorf("%s: %s", env.Error.Code, env.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}
	return env.Data, nil
}

// diff compares the live collection against the table by id; order is ignored.
func diff(live, remote []event) report {
	liveByID := make(map[string]event, len(live))
	for _, e := range live {
		liveByID[e.ID] = e
	}
	var r report
	seen := make(map[string]struct{}, len(remote))
	for _, want := range remote {
		seen[want.ID] = struct{}{}
		got, ok := liveByID[want.ID]
		switch {
		case !ok:
			r.Missing = append(r.Missing, want.ID)
		case got.Title != want.Title || got.Type != want.Type || !got.StartDate.Equal(want.StartDate):
			r.Changed = append(r.Changed, want.ID)
		}
	}
	for id := range liveByID {
		if _, ok := seen[id]; !ok {
			r.Extra = append(r.Extra, id)
		}
	}
	sort.Strings(r.Missing)
	sort.Strings(r.Extra)
	sort.Strings(r.Changed)
	return r
}

func printReport(r report) {
	fmt.Println("Convergence Report")
	fmt.Println("==================")
	fmt.Printf("  Missing from live collection: %v\n", r.Missing)
	fmt.Printf("  Only in live collection: %v\n", r.Extra)
	fmt.Printf("  Fields differ: %v\n", r.Changed)
}
