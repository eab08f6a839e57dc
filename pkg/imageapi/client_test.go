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
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/talesofai/nietest/pkg/apis/v1"
	"github.com/talesofai/nietest/pkg/httpclient"
)

func newTestClient(baseUrl string, attempts int) *Client {
	return &Client{
		http:      httpclient.NewHttpClient(),
		baseUrl:   func(string) string { return baseUrl },
		token:     "test-token",
		attempts:  func(bool) int { return attempts },
		interval:  func(bool) time.Duration { return time.Millisecond },
		sleepFunc: func(context.Context, time.Duration) error { return nil },
	}
}

func genSpec() *GenerateSpec {
	return &GenerateSpec{
		Prompts: []v1.PromptItem{{Type: v1.PromptFreetext, Value: "1girl", Weight: 1}},
		Ratio:   "1:1",
		Seed:    7,
		Queue:   v1.QueueProd,
	}
}

func TestGenerateSuccess(t *testing.T) {
	polls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, float64(1), payload["batch_size"])
			assert.Equal(t, float64(1024), payload["width"])
			fmt.Fprint(w, `{"data":{"task_uuid":"u-123"}}`)
		case http.MethodGet:
			polls++
			if polls < 3 {
				fmt.Fprint(w, `{"task_status":"running"}`)
				return
			}
			fmt.Fprint(w, `{"task_status":"completed","data":{"url":"http://cdn/img.png"}}`)
		}
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, 10)
	result, err := c.Generate(context.Background(), genSpec())
	require.NoError(t, err)
	assert.Equal(t, "http://cdn/img.png", result.Url)
	assert.Equal(t, 1024, result.Width)
	assert.Equal(t, 1024, result.Height)
	assert.Equal(t, int64(7), result.Seed)
	assert.Equal(t, 3, polls)
}

func TestGenerateServerReportedSeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"uuid":"u-1"}`)
			return
		}
		fmt.Fprint(w, `{"task_status":"completed","seed":987654,"data":{"url":"http://cdn/img.png"}}`)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, 3)
	spec := genSpec()
	spec.Seed = 0
	result, err := c.Generate(context.Background(), spec)
	require.NoError(t, err)
	// server-random requests keep the seed the backend actually used
	assert.Equal(t, int64(987654), result.Seed)
}

func TestExtractSeedProbes(t *testing.T) {
	tests := []struct {
		body string
		seed int64
	}{
		{`{"seed":42}`, 42},
		{`{"seed":"43"}`, 43},
		{`{"data":{"seed":44}}`, 44},
		{`{"seed":"garbage"}`, 0},
		{`{"nothing":true}`, 0},
	}
	for _, tt := range tests {
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(tt.body), &payload))
		assert.Equal(t, tt.seed, extractSeed(payload), "body: %s", tt.body)
	}
}

func TestGenerateIllegalOnSubmit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnavailableForLegalReasons)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, 3)
	_, err := c.Generate(context.Background(), genSpec())
	require.Error(t, err)
	assert.Equal(t, KindIllegalContent, KindOf(err))
}

func TestGenerateIllegalImageStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"uuid":"u-1"}`)
			return
		}
		fmt.Fprint(w, `{"task_status":"ILLEGAL_IMAGE"}`)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, 3)
	_, err := c.Generate(context.Background(), genSpec())
	require.Error(t, err)
	assert.Equal(t, KindIllegalContent, KindOf(err))
}

func TestGenerateUpstreamFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"id":"u-1"}`)
			return
		}
		fmt.Fprint(w, `{"task_status":"FAILURE"}`)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, 3)
	_, err := c.Generate(context.Background(), genSpec())
	require.Error(t, err)
	assert.Equal(t, KindFailure, KindOf(err))
}

func TestGenerateExplicitTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"task_id":"u-1"}`)
			return
		}
		fmt.Fprint(w, `{"task_status":"TIMEOUT"}`)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, 3)
	_, err := c.Generate(context.Background(), genSpec())
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestGeneratePollExhaustion(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `"u-plain"`)
			return
		}
		fmt.Fprint(w, `{"task_status":"running"}`)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, 4)
	_, err := c.Generate(context.Background(), genSpec())
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestExtractUuidProbes(t *testing.T) {
	tests := []struct {
		body string
		uuid string
	}{
		{`"direct-uuid"`, "direct-uuid"},
		{`{"uuid":"a"}`, "a"},
		{`{"task_uuid":"b"}`, "b"},
		{`{"id":"c"}`, "c"},
		{`{"task_id":"d"}`, "d"},
		{`{"data":{"uuid":"e"}}`, "e"},
		{`{"data":{"task_id":"f"}}`, "f"},
		{`{"other":"g"}`, ""},
		{`not json`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.uuid, extractUuid([]byte(tt.body)), "body: %s", tt.body)
	}
}

func TestExtractUrlProbes(t *testing.T) {
	tests := []struct {
		body string
		url  string
	}{
		{`{"url":"u1"}`, "u1"},
		{`{"image_url":"u2"}`, "u2"},
		{`{"data":{"url":"u3"}}`, "u3"},
		{`{"data":{"image_url":"u4"}}`, "u4"},
		{`{"images":["u5"]}`, "u5"},
		{`{"images":[{"url":"u6"}]}`, "u6"},
		{`{"data":{"images":["u7"]}}`, "u7"},
		{`{"nothing":true}`, ""},
	}
	for _, tt := range tests {
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(tt.body), &payload))
		assert.Equal(t, tt.url, extractUrl(payload), "body: %s", tt.body)
	}
}
