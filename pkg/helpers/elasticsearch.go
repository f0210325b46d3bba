package helpers

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// NewESClient creates an Elasticsearch client with sane defaults and optional basic auth.
func NewESClient(addrs []string, username, password string) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses:  addrs,
		Username:   username,
		Password:   password,
		MaxRetries: 2,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 5 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	}
	return elasticsearch.NewClient(cfg)
}

// EnsureIndex creates index with the given mapping body when it does not exist.
// It reports whether the index was created.
func EnsureIndex(ctx context.Context, es *elasticsearch.Client, index string, mapping []byte) (bool, error) {
	res, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, es)
	if err != nil {
		return false, err
	}
	_ = res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return false, nil
	case http.StatusNotFound:
	default:
		return false, fmt.Errorf("elasticsearch: check index %s: %s", index, res.Status())
	}

	res, err = esapi.IndicesCreateRequest{Index: index, Body: bytes.NewReader(mapping)}.Do(ctx, es)
	if err != nil {
		return false, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return false, fmt.Errorf("elasticsearch: create index %s: %s", index, res.Status())
	}
	return true, nil
}
