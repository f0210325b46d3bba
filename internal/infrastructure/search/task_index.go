package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

const requestTimeout = 3 * time.Second

// TaskIndex stores tasks as Elasticsearch documents keyed by task id.
type TaskIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewTaskIndex(es *elasticsearch.Client, index string) *TaskIndex {
	return &TaskIndex{es: es, index: index}
}

const taskMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "user_id":     {"type": "keyword"},
      "title":       {"type": "text"},
      "description": {"type": "text"},
      "status":      {"type": "keyword"},
      "priority":    {"type": "keyword"},
      "due_date":    {"type": "date"},
      "created_at":  {"type": "date"},
      "updated_at":  {"type": "date"}
    }
  }
}`

// EnsureIndex creates the tasks index with keyword owner/status fields so the
// user_id term filter matches exactly.
func (x *TaskIndex) EnsureIndex(ctx context.Context) (bool, error) {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return helpers.EnsureIndex(c, x.es, x.index, []byte(taskMapping))
}

func (x *TaskIndex) Index(ctx context.Context, t entity.Task) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.index, DocumentID: t.ID, Body: bytes.NewReader(b), Refresh: "false"}
	return x.do(ctx, req, nil)
}

func (x *TaskIndex) Remove(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: x.index, DocumentID: id}
	return x.do(ctx, req, nil)
}

func (x *TaskIndex) RemoveUser(ctx context.Context, userID string) error {
	body, _ := json.Marshal(map[string]any{
		"query": map[string]any{"term": map[string]any{"user_id": userID}},
	})
	req := esapi.DeleteByQueryRequest{Index: []string{x.index}, Body: bytes.NewReader(body)}
	return x.do(ctx, req, nil)
}

// Search runs a multi_match on title and description restricted to the owner.
func (x *TaskIndex) Search(ctx context.Context, userID, q string, limit int) ([]entity.Task, error) {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  q,
						"fields": []string{"title^2", "description"},
					},
				},
				"filter": map[string]any{"term": map[string]any{"user_id": userID}},
			},
		},
		"size": limit,
	}
	b, _ := json.Marshal(query)
	req := esapi.SearchRequest{Index: []string{x.index}, Body: bytes.NewReader(b)}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source entity.Task `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := x.do(ctx, req, &parsed); err != nil {
		return nil, err
	}
	out := make([]entity.Task, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

func (x *TaskIndex) do(ctx context.Context, req esapi.Request, dest any) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	// a missing document on delete is not an error
	if res.StatusCode == 404 && dest == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("elasticsearch: %s", res.Status())
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	return json.NewDecoder(res.Body).Decode(dest)
}

var _ application.TaskIndex = (*TaskIndex)(nil)
