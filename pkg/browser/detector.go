package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultDebugPorts are the local ports probed for a Chrome debug endpoint,
// in order. 9222 is Chrome's conventional remote-debugging port.
var DefaultDebugPorts = []int{9222, 9223, 9224, 9225}

// ProbeTimeout bounds each individual port probe.
const ProbeTimeout = 500 * time.Millisecond

// DefaultCandidates returns the default endpoint candidates built from
// DefaultDebugPorts.
func DefaultCandidates() []string {
	candidates := make([]string, 0, len(DefaultDebugPorts))
	for _, port := range DefaultDebugPorts {
		candidates = append(candidates, fmt.Sprintf("http://127.0.0.1:%d", port))
	}
	return candidates
}

// DetectEndpoint probes the candidate endpoints for an already-listening
// browser debug endpoint and returns the first that answers. Each probe is a
// GET /json/version with a short timeout; a 2xx JSON response confirms
// availability. All candidates are tried once, in order, before giving up.
//
// Returning "" is a normal outcome, not an error: it means no live browser
// was found and the caller should use the subprocess backend.
func DetectEndpoint(ctx context.Context, candidates []string) string {
	if len(candidates) == 0 {
		candidates = DefaultCandidates()
	}

	client := &http.Client{Timeout: ProbeTimeout}
	for _, candidate := range candidates {
		if probeEndpoint(ctx, client, candidate) {
			return candidate
		}
	}
	return ""
}

// probeEndpoint checks a single candidate for a responsive debug endpoint.
func probeEndpoint(ctx context.Context, client *http.Client, endpoint string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/json/version", nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return false
	}

	var version map[string]interface{}
	return json.Unmarshal(body, &version) == nil
}
