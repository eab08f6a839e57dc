/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package imageapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"k8s.io/klog/v2"

	commonconfig "github.com/talesofai/nietest/pkg/config"
	"github.com/talesofai/nietest/pkg/httpclient"
)

// Interface is the image generation backend. One Generate call covers the
// whole submit + poll cycle and returns a single final image.
type Interface interface {
	Generate(ctx context.Context, spec *GenerateSpec) (*GenerateResult, error)
}

type Client struct {
	http      httpclient.Interface
	baseUrl   func(queue string) string
	token     string
	attempts  func(lumina bool) int
	interval  func(lumina bool) time.Duration
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient builds the production client from the process configuration.
func NewClient() *Client {
	return &Client{
		http:    httpclient.NewHttpClientWithTimeout(time.Duration(commonconfig.GetImageSubmitTimeoutSecond()) * time.Second),
		baseUrl: commonconfig.GetImageApiBaseUrl,
		token:   commonconfig.GetImageApiToken(),
		attempts: func(lumina bool) int {
			if lumina {
				return commonconfig.GetLuminaMaxPollingAttempts()
			}
			return commonconfig.GetImageMaxPollingAttempts()
		},
		interval: func(lumina bool) time.Duration {
			seconds := commonconfig.GetImagePollingIntervalSecond()
			if lumina {
				seconds = commonconfig.GetLuminaPollingIntervalSecond()
			}
			return time.Duration(seconds * float64(time.Second))
		},
		sleepFunc: sleepWithContext,
	}
}

// Generate submits one request and polls until the backend reports a terminal
// status or the attempt budget runs out.
func (c *Client) Generate(ctx context.Context, spec *GenerateSpec) (*GenerateResult, error) {
	if spec == nil || len(spec.Prompts) == 0 {
		return nil, newError(KindFailure, "empty generate spec")
	}
	width, height := ParseDimensions(spec.Ratio)
	payload := &submitPayload{
		Prompts:    spec.Prompts,
		Width:      width,
		Height:     height,
		Seed:       spec.Seed,
		BatchSize:  1,
		Quality:    "high",
		UsePolish:  spec.UsePolish,
		ClientArgs: spec.ClientArgs,
	}
	uuid, err := c.submit(spec.Queue, payload)
	if err != nil {
		return nil, err
	}

	lumina := isLuminaPrompts(spec)
	attempts := c.attempts(lumina)
	interval := c.interval(lumina)
	for i := 0; i < attempts; i++ {
		if err = c.sleepFunc(ctx, interval); err != nil {
			return nil, newError(KindFailure, "polling interrupted: %v", err)
		}
		result, done, err := c.poll(spec.Queue, uuid)
		if err != nil {
			return nil, err
		}
		if done {
			if result.Seed == 0 {
				result.Seed = spec.Seed
			}
			result.Width = width
			result.Height = height
			return result, nil
		}
	}
	return nil, newError(KindTimeout, "no terminal status after %d polling attempts", attempts)
}

func (c *Client) submit(queue string, payload *submitPayload) (string, error) {
	url := fmt.Sprintf("%s/v1/images/generations", c.baseUrl(queue))
	result, err := c.http.Post(url, payload, "Authorization", "Bearer "+c.token)
	if err != nil {
		return "", newError(KindFailure, "submit failed: %v", err)
	}
	if result.StatusCode == http.StatusUnavailableForLegalReasons {
		return "", newError(KindIllegalContent, "submit rejected: %s", result.String())
	}
	if !result.IsSuccess() {
		return "", newError(KindFailure, "submit returned %d: %s", result.StatusCode, result.String())
	}
	uuid := extractUuid(result.Body)
	if uuid == "" {
		return "", newError(KindFailure, "submit response carries no task uuid: %s", result.String())
	}
	return uuid, nil
}

// poll asks for the task status once. done is true only with a usable result;
// non-terminal statuses return (nil, false, nil).
func (c *Client) poll(queue, uuid string) (*GenerateResult, bool, error) {
	url := fmt.Sprintf("%s/v1/images/tasks/%s", c.baseUrl(queue), uuid)
	result, err := c.http.Get(url, "Authorization", "Bearer "+c.token)
	if err != nil {
		return nil, false, newError(KindFailure, "poll failed: %v", err)
	}
	if result.StatusCode == http.StatusUnavailableForLegalReasons {
		return nil, false, newError(KindIllegalContent, "poll rejected: %s", result.String())
	}
	if !result.IsSuccess() {
		// transient upstream hiccup, keep polling
		klog.V(4).Infof("poll for %s returned %d, retrying", uuid, result.StatusCode)
		return nil, false, nil
	}

	var payload map[string]interface{}
	if err = json.Unmarshal(result.Body, &payload); err != nil {
		return nil, false, newError(KindFailure, "malformed poll response: %v", err)
	}
	switch status := extractStatus(payload); status {
	case "ILLEGAL_IMAGE":
		return nil, false, newError(KindIllegalContent, "generation flagged as illegal image")
	case "FAILURE", "failed", "error":
		return nil, false, newError(KindFailure, "generation failed upstream")
	case "TIMEOUT", "timeout":
		return nil, false, newError(KindTimeout, "generation timed out upstream")
	case "completed", "success", "SUCCESS", "COMPLETED":
		imageUrl := extractUrl(payload)
		if imageUrl == "" {
			return nil, false, newError(KindFailure, "terminal response carries no image url")
		}
		return &GenerateResult{Url: imageUrl, Seed: extractSeed(payload)}, true, nil
	default:
		return nil, false, nil
	}
}

// extractUuid probes the submit response for the task uuid. The backend has
// shipped several envelope shapes, so probe an ordered field list at the top
// level and under "data".
func extractUuid(body []byte) string {
	var direct string
	if err := json.Unmarshal(body, &direct); err == nil && direct != "" {
		return direct
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	probes := []string{"uuid", "task_uuid", "id", "task_id"}
	for _, key := range probes {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	if data, ok := payload["data"].(map[string]interface{}); ok {
		for _, key := range probes {
			if s, ok := data[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func extractStatus(payload map[string]interface{}) string {
	if s, ok := payload["task_status"].(string); ok {
		return s
	}
	if s, ok := payload["status"].(string); ok {
		return s
	}
	if data, ok := payload["data"].(map[string]interface{}); ok {
		if s, ok := data["task_status"].(string); ok {
			return s
		}
		if s, ok := data["status"].(string); ok {
			return s
		}
	}
	return ""
}

// extractUrl probes the poll response for the final image url, in order:
// url, image_url, data.url, data.image_url, images[0].
func extractUrl(payload map[string]interface{}) string {
	if s, ok := payload["url"].(string); ok && s != "" {
		return s
	}
	if s, ok := payload["image_url"].(string); ok && s != "" {
		return s
	}
	if data, ok := payload["data"].(map[string]interface{}); ok {
		if s, ok := data["url"].(string); ok && s != "" {
			return s
		}
		if s, ok := data["image_url"].(string); ok && s != "" {
			return s
		}
		if s := firstImage(data["images"]); s != "" {
			return s
		}
	}
	return firstImage(payload["images"])
}

func firstImage(value interface{}) string {
	images, ok := value.([]interface{})
	if !ok || len(images) == 0 {
		return ""
	}
	switch first := images[0].(type) {
	case string:
		return first
	case map[string]interface{}:
		if s, ok := first["url"].(string); ok {
			return s
		}
	}
	return ""
}

// extractSeed probes the terminal payload for the seed the backend actually
// used. Matters for server-random requests, where the request seed is 0.
func extractSeed(payload map[string]interface{}) int64 {
	if s := seedValue(payload["seed"]); s != 0 {
		return s
	}
	if data, ok := payload["data"].(map[string]interface{}); ok {
		return seedValue(data["seed"])
	}
	return 0
}

func seedValue(value interface{}) int64 {
	switch v := value.(type) {
	case float64:
		return int64(v)
	case string:
		if s, err := strconv.ParseInt(v, 10, 64); err == nil {
			return s
		}
	}
	return 0
}

func isLuminaPrompts(spec *GenerateSpec) bool {
	for i := range spec.Prompts {
		if strings.Contains(strings.ToLower(spec.Prompts[i].Name), "lumina") {
			return true
		}
	}
	return false
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
