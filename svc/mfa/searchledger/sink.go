// Package searchledger indexes verification attempts into OpenSearch so
// operators can search failures by principal, reason and client origin.
package searchledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/dmitrymomot/mfakit/svc/mfa"
)

var (
	ErrIndexFailed = errors.New("searchledger: index request failed")
	ErrBulkFailed  = errors.New("searchledger: bulk request rejected items")
)

const indexSuffix = "-verification-attempts"

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "principal_id":  {"type": "keyword"},
      "factor_id":     {"type": "keyword"},
      "factor_type":   {"type": "keyword"},
      "outcome":       {"type": "keyword"},
      "reason":        {"type": "keyword"},
      "client_origin": {"type": "keyword"},
      "created_at":    {"type": "date"}
    }
  }
}`

// Sink writes attempts with the bulk API. It satisfies audit.BatchWriter[mfa.Attempt].
type Sink struct {
	client *opensearch.Client
	index  string
}

// New returns a sink writing to "<prefix>-verification-attempts".
func New(client *opensearch.Client, prefix string) *Sink {
	if prefix == "" {
		prefix = "mfa"
	}
	return &Sink{client: client, index: prefix + indexSuffix}
}

func (s *Sink) Index() string { return s.index }

// EnsureIndex creates the index with its mapping. An existing index is left as is.
func (s *Sink) EnsureIndex(ctx context.Context) error {
	res, err := opensearchapi.IndicesCreateRequest{
		Index: s.index,
		Body:  strings.NewReader(indexMapping),
	}.Do(ctx, s.client)
	if err != nil {
		return errors.Join(ErrIndexFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		if bytes.Contains(body, []byte("resource_already_exists_exception")) {
			return nil
		}
		return errors.Join(ErrIndexFailed, fmt.Errorf("create index %s: %s", s.index, res.Status()))
	}
	return nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

func (s *Sink) StoreBatch(ctx context.Context, attempts []mfa.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range attempts {
		meta := map[string]map[string]string{"index": {"_index": s.index, "_id": a.ID.String()}}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(a); err != nil {
			return err
		}
	}

	res, err := opensearchapi.BulkRequest{Body: &buf}.Do(ctx, s.client)
	if err != nil {
		return errors.Join(ErrIndexFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Join(ErrIndexFailed, fmt.Errorf("bulk: %s", res.Status()))
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return errors.Join(ErrIndexFailed, err)
	}
	if !br.Errors {
		return nil
	}

	failed, first := 0, ""
	for _, item := range br.Items {
		for _, r := range item {
			if r.Status >= 300 {
				failed++
				if first == "" {
					first = r.Error.Type + ": " + r.Error.Reason
				}
			}
		}
	}
	return fmt.Errorf("%w: %d of %d (%s)", ErrBulkFailed, failed, len(attempts), first)
}
