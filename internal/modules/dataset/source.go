// README: Dataset sources: local directory, REST endpoint, and in-memory text.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Kind string

const (
	KindHistory Kind = "history"
	KindUsers   Kind = "users"
	KindRides   Kind = "rides"
)

// Source yields the raw delimited text of one dataset. The history dataset is
// optional: sources return "" with a nil error when it does not exist.
type Source interface {
	Fetch(ctx context.Context, kind Kind) (string, error)
}

// FileSource reads <Dir>/<kind>.csv.
type FileSource struct {
	Dir string
}

func (s FileSource) Fetch(_ context.Context, kind Kind) (string, error) {
	path := filepath.Join(s.Dir, string(kind)+".csv")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && kind == KindHistory {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// HTTPSource fetches <BaseURL>/<kind>.csv, e.g. a spreadsheet export endpoint.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

func (s HTTPSource) Fetch(ctx context.Context, kind Kind) (string, error) {
	url := strings.TrimRight(s.BaseURL, "/") + "/" + string(kind) + ".csv"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("dataset: build request: %w", err)
	}
	client := s.Client
	if client == nil {
		client = defaultHTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("dataset: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && kind == KindHistory {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dataset: get %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("dataset: read %s: %w", url, err)
	}
	return string(body), nil
}

// StaticSource serves datasets from memory.
type StaticSource map[Kind]string

func (s StaticSource) Fetch(_ context.Context, kind Kind) (string, error) {
	text, ok := s[kind]
	if !ok && kind != KindHistory {
		return "", fmt.Errorf("dataset %s not provided", kind)
	}
	return text, nil
}
