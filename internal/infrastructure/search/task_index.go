package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/taskboard-api/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// TaskIndex keeps an Elasticsearch copy of tasks for owner-scoped search.
type TaskIndex struct {
	ES        *elasticsearch.Client
	IndexName string
}

func NewTaskIndex(es *elasticsearch.Client, index string) *TaskIndex {
	return &TaskIndex{ES: es, IndexName: index}
}

type taskDoc struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	UserID      int64     `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toDoc(t entity.Task) taskDoc {
	return taskDoc{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d taskDoc) task() entity.Task {
	return entity.Task{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Status:      entity.TaskStatus(d.Status),
		Priority:    entity.TaskPriority(d.Priority),
		UserID:      d.UserID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func responseError(res *esapi.Response) error {
	if res.IsError() {
		return fmt.Errorf("elasticsearch: %s", res.Status())
	}
	return nil
}

func (i *TaskIndex) Index(ctx context.Context, t entity.Task) error {
	b, err := json.Marshal(toDoc(t))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      i.IndexName,
		DocumentID: strconv.FormatInt(t.ID, 10),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, i.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	return responseError(res)
}

func (i *TaskIndex) Remove(ctx context.Context, id int64) error {
	req := esapi.DeleteRequest{Index: i.IndexName, DocumentID: strconv.FormatInt(id, 10)}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, i.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return responseError(res)
}

var taskMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":          map[string]any{"type": "long"},
			"title":       map[string]any{"type": "text"},
			"description": map[string]any{"type": "text"},
			"status":      map[string]any{"type": "keyword"},
			"priority":    map[string]any{"type": "keyword"},
			"userId":      map[string]any{"type": "long"},
			"createdAt":   map[string]any{"type": "date"},
			"updatedAt":   map[string]any{"type": "date"},
		},
	},
}

// EnsureIndex creates the index with an explicit mapping when missing, so
// userId is a numeric term field rather than whatever dynamic mapping picks.
func (i *TaskIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	exists, err := esapi.IndicesExistsRequest{Index: []string{i.IndexName}}.Do(c, i.ES)
	if err != nil {
		return err
	}
	_ = exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	b, err := json.Marshal(taskMapping)
	if err != nil {
		return err
	}
	res, err := esapi.IndicesCreateRequest{Index: i.IndexName, Body: bytes.NewReader(b)}.Do(c, i.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	return responseError(res)
}

// buildQuery matches title and description but only within ownerID's tasks.
func buildQuery(ownerID int64, q string, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  q,
						"fields": []string{"title^2", "description"},
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"userId": ownerID},
				},
			},
		},
		"size": size,
	}
}

func (i *TaskIndex) Search(ctx context.Context, ownerID int64, q string, size int) ([]entity.Task, error) {
	b, err := json.Marshal(buildQuery(ownerID, q, size))
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := i.ES.Search(
		i.ES.Search.WithContext(c),
		i.ES.Search.WithIndex(i.IndexName),
		i.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if err := responseError(res); err != nil {
		return nil, err
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source taskDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]entity.Task, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		// the filter already scopes by owner; re-check in case of a stale mapping
		if h.Source.UserID != ownerID {
			continue
		}
		out = append(out, h.Source.task())
	}
	return out, nil
}
