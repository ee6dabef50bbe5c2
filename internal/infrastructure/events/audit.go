package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
)

// AuditIndexer writes one document per auth event into an Elasticsearch index.
type AuditIndexer struct {
	ES      *elasticsearch.Client
	Index   string
	Timeout time.Duration
}

func NewAuditIndexer(es *elasticsearch.Client, index string) *AuditIndexer {
	return &AuditIndexer{ES: es, Index: index, Timeout: 3 * time.Second}
}

type auditDoc struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	IP     string `json:"ip,omitempty"`
	At     string `json:"at"`
}

const auditMapping = `{"mappings":{"properties":{` +
	`"type":{"type":"keyword"},"user_id":{"type":"long"},"email":{"type":"keyword"},` +
	`"ip":{"type":"ip"},"at":{"type":"date"}}}}`

// EnsureIndex creates the index with its mapping unless it already exists.
func (a *AuditIndexer) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	exists, err := esapi.IndicesExistsRequest{Index: []string{a.Index}}.Do(c, a.ES)
	if err != nil {
		return fmt.Errorf("check audit index: %w", err)
	}
	_ = exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}

	res, err := esapi.IndicesCreateRequest{Index: a.Index, Body: strings.NewReader(auditMapping)}.Do(c, a.ES)
	if err != nil {
		return fmt.Errorf("create audit index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create audit index: %s", res.Status())
	}
	return nil
}

func (a *AuditIndexer) Publish(ctx context.Context, ev entity.AuthEvent) error {
	b, err := json.Marshal(auditDoc{
		Type:   ev.Type,
		UserID: ev.UserID,
		Email:  ev.Email,
		IP:     ev.IP,
		At:     ev.At.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: a.Index, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()
	res, err := req.Do(c, a.ES)
	if err != nil {
		return fmt.Errorf("index audit event: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index audit event: %s", res.Status())
	}
	return nil
}
