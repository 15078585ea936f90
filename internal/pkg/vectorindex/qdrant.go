package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Qdrant talks to a qdrant server over its REST API. Point ids are the
// content item UUIDs, so no id mapping table is needed.
type Qdrant struct {
	endpoint   string
	apiKey     string
	collection string
	dim        int
	httpClient *http.Client
}

type qdrantHTTPError struct {
	StatusCode int
	Body       string
}

func (e *qdrantHTTPError) Error() string {
	return fmt.Sprintf("qdrant error %d: %s", e.StatusCode, e.Body)
}

func NewQdrant(endpoint, apiKey, collection string, dim int) *Qdrant {
	if endpoint == "" {
		endpoint = "http://localhost:6333"
	}
	if collection == "" {
		collection = "tracepaper"
	}
	return &Qdrant{
		endpoint:   endpoint,
		apiKey:     apiKey,
		collection: collection,
		dim:        dim,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Init creates the collection when it does not exist yet.
func (q *Qdrant) Init(ctx context.Context) error {
	_, err := q.do(ctx, http.MethodGet, q.collectionPath(""), nil)
	if err == nil {
		return nil
	}
	if !isQdrantNotFoundErr(err) {
		return err
	}

	body, _ := json.Marshal(map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     q.dim,
			"distance": "Cosine",
		},
	})
	_, err = q.do(ctx, http.MethodPut, q.collectionPath(""), body)
	return err
}

func (q *Qdrant) Add(ctx context.Context, id string, vector []float32) error {
	if id == "" {
		return fmt.Errorf("empty vector id")
	}
	if len(vector) != q.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), q.dim)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"points": []map[string]interface{}{
			{"id": id, "vector": vector},
		},
	})
	_, err := q.do(ctx, http.MethodPut, q.collectionPath("/points?wait=true"), body)
	return err
}

func (q *Qdrant) Remove(ctx context.Context, id string) error {
	body, _ := json.Marshal(map[string]interface{}{
		"points": []string{id},
	})
	_, err := q.do(ctx, http.MethodPost, q.collectionPath("/points/delete?wait=true"), body)
	return err
}

func (q *Qdrant) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) != q.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(vector), q.dim)
	}
	if k < 1 {
		return []Match{}, nil
	}

	body, _ := json.Marshal(map[string]interface{}{
		"vector": vector,
		"limit":  k,
	})
	data, err := q.do(ctx, http.MethodPost, q.collectionPath("/points/search"), body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result []struct {
			ID    interface{} `json:"id"`
			Score float32     `json:"score"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Result))
	for _, hit := range resp.Result {
		id, ok := hit.ID.(string)
		if !ok || id == "" {
			continue
		}
		matches = append(matches, Match{ID: id, Score: hit.Score})
	}
	return matches, nil
}

func (q *Qdrant) Count(ctx context.Context) (int, error) {
	body, _ := json.Marshal(map[string]interface{}{"exact": true})
	data, err := q.do(ctx, http.MethodPost, q.collectionPath("/points/count"), body)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Save is a no-op: qdrant persists server-side.
func (q *Qdrant) Save() error { return nil }

func (q *Qdrant) Close() error { return nil }

func (q *Qdrant) collectionPath(suffix string) string {
	return "/collections/" + url.PathEscape(q.collection) + suffix
}

func isQdrantNotFoundErr(err error) bool {
	var qe *qdrantHTTPError
	return errors.As(err, &qe) && qe.StatusCode == http.StatusNotFound
}

func (q *Qdrant) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, q.endpoint+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &qdrantHTTPError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
