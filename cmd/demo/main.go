// A small signed client that walks one job through the public API: submit,
// poll until terminal, then print the month's usage. Handy for checking a
// locally running stack end to end without curl gymnastics.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/infra/api"
)

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "API base URL")
	tenantID := flag.String("tenant", "acme", "tenant id to sign as")
	secret := flag.String("secret", "acme-dev-secret", "tenant signing secret")
	mode := flag.String("mode", "quick_boost", "job mode")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	// 1. Submit a job.
	payload := map[string]any{
		"mode": *mode,
		"items": []model.ContentItem{
			{ContentID: "demo-1", SourceSystem: "cms", ContentType: "article", Language: "en"},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	var created struct {
		JobID            string `json:"job_id"`
		Status           string `json:"status"`
		EstimatedCostAEJ int64  `json:"estimated_cost_aej"`
		Idempotent       bool   `json:"idempotent"`
	}
	code, err := call(client, http.MethodPost, *baseURL+"/api/v1/jobs", *tenantID, *secret, body, &created)
	if err != nil {
		log.Fatalf("create job: %v", err)
	}
	log.Printf("created: http=%d job=%s status=%s estimate=%d AEJ", code, created.JobID, created.Status, created.EstimatedCostAEJ)

	// 2. Poll until the job settles.
	var status struct {
		JobID    string          `json:"job_id"`
		Status   model.JobStatus `json:"status"`
		Progress int             `json:"progress"`
		Result   json.RawMessage `json:"result"`
	}
	for {
		time.Sleep(500 * time.Millisecond)
		_, err := call(client, http.MethodGet, *baseURL+"/api/v1/jobs/"+created.JobID, *tenantID, *secret, nil, &status)
		if err != nil {
			log.Fatalf("poll: %v", err)
		}
		log.Printf("poll: status=%s progress=%d%%", status.Status, status.Progress)
		if status.Status.Terminal() {
			break
		}
	}
	if len(status.Result) > 0 {
		fmt.Printf("result: %s\n", status.Result)
	}

	// 3. Show what the run cost.
	var usage struct {
		Month        string `json:"month"`
		AEJQuota     int64  `json:"aej_quota"`
		AEJConsumed  int64  `json:"aej_consumed"`
		AEJHeld      int64  `json:"aej_held"`
		AEJRemaining int64  `json:"aej_remaining"`
	}
	if _, err := call(client, http.MethodGet, *baseURL+"/api/v1/usage", *tenantID, *secret, nil, &usage); err != nil {
		log.Fatalf("usage: %v", err)
	}
	log.Printf("usage %s: quota=%d consumed=%d held=%d remaining=%d",
		usage.Month, usage.AEJQuota, usage.AEJConsumed, usage.AEJHeld, usage.AEJRemaining)
}

// call sends one signed request and decodes the JSON answer into out.
func call(client *http.Client, method, url, tenantID, secret string, body []byte, out any) (int, error) {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(api.HeaderTenantID, tenantID)
	req.Header.Set(api.HeaderTimestamp, ts)
	req.Header.Set(api.HeaderSignature, api.Sign(secret, ts, body))
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("http %d: %s", resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
