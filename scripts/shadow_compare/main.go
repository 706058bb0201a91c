// Shadow-compares the Go timetable API against the legacy ERP scheduler.
// Both sides receive the same read-only requests; a diff on a critical
// checkpoint fails the run. Dry-run generation is safe to compare because
// neither side persists anything.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"
)

type checkpoint struct {
	Name     string
	Method   string
	Path     string
	Body     interface{}
	Critical bool
}

type result struct {
	Checkpoint     checkpoint
	APIStatus      int
	LegacyStatus   int
	StatusMatch    bool
	BodyMatch      bool
	Err            error
	APIDuration    time.Duration
	LegacyDuration time.Duration
}

// volatileKeys are regenerated on every run and never comparable.
var volatileKeys = map[string]struct{}{
	"id":         {},
	"jobId":      {},
	"created_at": {},
	"createdAt":  {},
}

func main() {
	var (
		apiBase    string
		legacyBase string
		yearID     int64
		season     string
		timeout    time.Duration
	)

	flag.StringVar(&apiBase, "api-base", "http://localhost:8080", "Go timetable API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:8000", "Legacy ERP base URL")
	flag.Int64Var(&yearID, "year", 1, "Academic year id to compare")
	flag.StringVar(&season, "season", "autumn", "Season to compare (autumn or spring)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")
	flag.Parse()

	checkpoints := []checkpoint{
		{
			Name:     "committed timetable",
			Method:   http.MethodGet,
			Path:     fmt.Sprintf("/api/v1/timetable?yearId=%d&season=%s", yearID, season),
			Critical: true,
		},
		{
			Name:     "generation diagnostics",
			Method:   http.MethodGet,
			Path:     fmt.Sprintf("/api/v1/timetable/errors?yearId=%d", yearID),
			Critical: true,
		},
		{
			Name:   "dry-run generation",
			Method: http.MethodPost,
			Path:   "/api/v1/timetable/generate",
			Body: map[string]interface{}{
				"academicYearId": yearID,
				"season":         season,
			},
			Critical: false,
		},
	}

	client := &http.Client{Timeout: timeout}
	var breaking, advisory int
	results := make([]result, 0, len(checkpoints))

	for _, cp := range checkpoints {
		res := compare(client, apiBase, legacyBase, cp)
		if res.Err != nil || !res.StatusMatch || !res.BodyMatch {
			if cp.Critical {
				breaking++
			} else {
				advisory++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Breaking diffs: %d, Advisory diffs: %d\n", breaking, advisory)
	if breaking > 0 {
		os.Exit(1)
	}
}

func compare(client *http.Client, apiBase, legacyBase string, cp checkpoint) result {
	res := result{Checkpoint: cp}

	apiResp, apiDur, err := send(client, apiBase, cp)
	res.APIDuration = apiDur
	if err != nil {
		res.Err = fmt.Errorf("api request failed: %w", err)
		return res
	}
	defer apiResp.Body.Close()

	legacyResp, legacyDur, err := send(client, legacyBase, cp)
	res.LegacyDuration = legacyDur
	if err != nil {
		res.Err = fmt.Errorf("legacy request failed: %w", err)
		return res
	}
	defer legacyResp.Body.Close()

	res.APIStatus = apiResp.StatusCode
	res.LegacyStatus = legacyResp.StatusCode
	res.StatusMatch = res.APIStatus == res.LegacyStatus

	apiBody, err := io.ReadAll(apiResp.Body)
	if err != nil {
		res.Err = fmt.Errorf("read api body: %w", err)
		return res
	}
	legacyBody, err := io.ReadAll(legacyResp.Body)
	if err != nil {
		res.Err = fmt.Errorf("read legacy body: %w", err)
		return res
	}

	res.BodyMatch = bodiesEqual(apiBody, legacyBody)
	return res
}

func send(client *http.Client, base string, cp checkpoint) (*http.Response, time.Duration, error) {
	url := strings.TrimRight(base, "/") + cp.Path

	var payload io.Reader
	if cp.Body != nil {
		raw, err := json.Marshal(cp.Body)
		if err != nil {
			return nil, 0, err
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(cp.Method, url, payload)
	if err != nil {
		return nil, 0, err
	}
	if cp.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	return resp, time.Since(start), nil
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	normalize(&aj)
	normalize(&bj)
	return reflect.DeepEqual(aj, bj)
}

// normalize strips volatile keys and collapses whole floats so the two
// stacks' JSON encoders compare cleanly.
func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k := range volatileKeys {
			delete(val, k)
		}
		for k, v2 := range val {
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printReport(results []result) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.BodyMatch {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s (%s %s)\n", status, res.Checkpoint.Name, res.Checkpoint.Method, res.Checkpoint.Path)
		fmt.Printf("  API status: %d (%s)\n", res.APIStatus, res.APIDuration)
		fmt.Printf("  Legacy status: %d (%s)\n", res.LegacyStatus, res.LegacyDuration)
		if res.Err != nil {
			fmt.Printf("  Error: %v\n", res.Err)
		} else {
			fmt.Printf("  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Checkpoint.Critical)
		}
	}
}
