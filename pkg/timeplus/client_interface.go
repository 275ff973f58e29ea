package timeplus

import (
	"context"
)

// TimeplusClient defines the interface for a Timeplus client
// This allows us to mock the client for testing
type TimeplusClient interface {
	StreamExists(ctx context.Context, name string) (bool, error)
	CreateMutableStream(ctx context.Context, name string, schema []Column, primaryKeys []string) error
	DeleteStream(ctx context.Context, name string) error
	ExecuteQuery(ctx context.Context, query string) ([]map[string]interface{}, error)
	StreamQuery(ctx context.Context, query string, callback func(row map[string]interface{})) error
	InsertIntoStream(ctx context.Context, streamName string, columns []string, values []interface{}) error
	ListStreams(ctx context.Context) ([]string, error)
	ExecuteDDL(ctx context.Context, query string) error
	Close() error
}

// Ensure Client implements TimeplusClient
var _ TimeplusClient = (*Client)(nil)
