package clients

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// TokenHeader carries the API token on every request once one is configured
const TokenHeader = "X-Dataverse-key"

// maxMessageBytes bounds raw server bodies quoted in error messages
const maxMessageBytes = 1024

// DatasetURL dataset-by-persistent-id resource
func DatasetURL(baseURL, datasetID string) string {
	return baseURL + "/api/datasets/:persistentId/?persistentId=" + url.QueryEscape(datasetID)
}

// DatafileURL per-file data-access resource
func DatafileURL(baseURL string, fileID int64, original bool) string {
	u := fmt.Sprintf("%s/api/access/datafile/%d", baseURL, fileID)
	if original {
		u += "?format=original"
	}
	return u
}

// AddFileURL dataset add-file resource
func AddFileURL(baseURL, datasetID string) string {
	return baseURL + "/api/datasets/:persistentId/add?persistentId=" + url.QueryEscape(datasetID)
}

// ServerMessage extracts the "message" field of a JSON error body, or
// returns the trimmed raw body.
func ServerMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxMessageBytes {
		msg = msg[:maxMessageBytes] + "..."
	}
	return msg
}
