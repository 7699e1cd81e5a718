package outbox

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// SchemaRegistryClient provides minimal interactions with Confluent Schema Registry.
type SchemaRegistryClient struct {
	http *resty.Client
}

type schemaIDResponse struct {
	ID int `json:"id"`
}

// NewSchemaRegistryClient constructs a client with sane defaults.
func NewSchemaRegistryClient(baseURL string) *SchemaRegistryClient {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/vnd.schemaregistry.v1+json")
	return &SchemaRegistryClient{http: rc}
}

// EnsureSchema ensures a schema subject exists and returns the schema ID.
func (c *SchemaRegistryClient) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	if id, err := c.fetchLatest(ctx, subject); err == nil {
		return id, nil
	}

	return c.register(ctx, subject, schema)
}

func (c *SchemaRegistryClient) fetchLatest(ctx context.Context, subject string) (int, error) {
	var payload schemaIDResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("subject", subject).
		SetResult(&payload).
		Get("/subjects/{subject}/versions/latest")
	if err != nil {
		return 0, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return 0, fmt.Errorf("schema subject not found")
	}
	if resp.IsError() {
		return 0, fmt.Errorf("schema registry error: %s", resp.Body())
	}
	return payload.ID, nil
}

func (c *SchemaRegistryClient) register(ctx context.Context, subject string, schema string) (int, error) {
	var payload schemaIDResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("subject", subject).
		SetHeader("Content-Type", "application/vnd.schemaregistry.v1+json").
		SetBody(map[string]any{
			"schemaType": "JSON",
			"schema":     schema,
		}).
		SetResult(&payload).
		Post("/subjects/{subject}/versions")
	if err != nil {
		return 0, err
	}

	if resp.IsError() {
		return 0, fmt.Errorf("schema registry register error: %s", resp.Body())
	}
	return payload.ID, nil
}
