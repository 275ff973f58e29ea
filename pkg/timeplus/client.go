package timeplus

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/timeplus-io/proton-go-driver/v2"
	"github.com/timeplus-io/proton-go-driver/v2/lib/driver"

	"github.com/wisecare-health/sos-gateway/pkg/config"
)

// Column represents a column definition
type Column struct {
	Name     string
	Type     string
	Nullable bool // Whether the column can be NULL
}

// Client is a wrapper around the Timeplus Proton Go driver connection
type Client struct {
	conn      driver.Conn
	workspace string
	address   string
	opts      *proton.Options // Stored for reconnects
}

// NewClient creates a new Timeplus client
func NewClient(cfg *config.TimeplusConfig) (*Client, error) {
	logrus.Infof("Connecting to Timeplus at %s (workspace: %s)", cfg.Address, cfg.Workspace)

	address := cfg.Address
	address = strings.TrimPrefix(address, "http://")
	address = strings.TrimPrefix(address, "https://")

	host := address
	port := "8464" // Default native port
	if strings.Contains(address, ":") {
		parts := strings.Split(address, ":")
		host = parts[0]
		port = parts[1]
	}
	connectionAddr := host + ":" + port

	opts := &proton.Options{
		Addr: []string{connectionAddr},
		Auth: proton.Auth{
			Database: cfg.Workspace,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    20,
		MaxIdleConns:    10,
		ConnMaxLifetime: 2 * time.Hour,
		Compression: &proton.Compression{
			Method: proton.CompressionLZ4,
		},
	}

	conn, err := proton.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection to Timeplus: %w", err)
	}

	// Test connection with retries
	var pingErr error
	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pingErr = conn.Ping(ctx)
		cancel()
		if pingErr == nil {
			break
		}
		logrus.Warnf("Failed to ping Timeplus (attempt %d/10): %v", i+1, pingErr)
		time.Sleep(3 * time.Second)
	}

	if pingErr != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping Timeplus after multiple attempts: %w", pingErr)
	}

	logrus.Info("Successfully connected to Timeplus")

	return &Client{
		conn:      conn,
		workspace: cfg.Workspace,
		address:   connectionAddr,
		opts:      opts,
	}, nil
}

// Close releases the underlying connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// CreateMutableStream creates a mutable stream with the given schema and
// primary key columns. Inserting a row with an existing key replaces it, which
// is what gives us partial-update semantics for alert transitions.
func (c *Client) CreateMutableStream(ctx context.Context, name string, schema []Column, primaryKeys []string) error {
	exists, err := c.StreamExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check if stream exists: %w", err)
	}
	if exists {
		logrus.Infof("Mutable stream %s already exists", name)
		return nil
	}

	columnsStr := ""
	for i, col := range schema {
		if i > 0 {
			columnsStr += ", "
		}
		nullableStr := ""
		if col.Nullable {
			nullableStr = " NULL"
		}
		columnsStr += fmt.Sprintf("`%s` %s%s", col.Name, col.Type, nullableStr)
	}
	pkStr := fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", "))

	query := fmt.Sprintf("CREATE MUTABLE STREAM `%s` (%s) %s", name, columnsStr, pkStr)
	if err := c.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create mutable stream '%s': %w", name, err)
	}

	logrus.Infof("Created mutable stream %s", name)
	return nil
}

// DeleteStream deletes a stream
func (c *Client) DeleteStream(ctx context.Context, name string) error {
	exists, err := c.StreamExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	query := fmt.Sprintf("DROP STREAM `%s`", name)
	if err = c.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to delete stream '%s': %w", name, err)
	}
	return nil
}

// StreamExists checks if a stream exists
func (c *Client) StreamExists(ctx context.Context, name string) (bool, error) {
	// Escape single quotes in the name for the LIKE pattern
	escapedName := strings.ReplaceAll(name, "'", "''")
	query := fmt.Sprintf("SHOW STREAMS LIKE '%s'", escapedName)
	rows, err := c.conn.Query(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to execute SHOW STREAMS: %w", err)
	}
	defer rows.Close()

	exists := rows.Next()
	if rows.Err() != nil {
		return false, fmt.Errorf("error checking rows from SHOW STREAMS: %w", rows.Err())
	}

	return exists, nil
}

// ExecuteQuery executes a bounded query and returns the result rows
func (c *Client) ExecuteQuery(ctx context.Context, query string) ([]map[string]interface{}, error) {
	maxRetries := 5
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			logrus.Warnf("Retrying query execution (attempt %d/%d) after error: %v", attempt+1, maxRetries, lastErr)

			if lastErr != nil && strings.Contains(lastErr.Error(), "EOF") {
				reconnCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
				if err := c.reconnect(reconnCtx); err != nil {
					logrus.Errorf("Failed to reconnect: %v", err)
				}
				cancel()
			}

			backoffSeconds := 1 << uint(attempt)
			if backoffSeconds > 20 {
				backoffSeconds = 20
			}
			jitter := time.Duration(float64(backoffSeconds) * (0.75 + 0.5*float64(time.Now().Nanosecond())/float64(1e9)))
			time.Sleep(jitter * time.Second)
		}

		queryCtx, cancel := context.WithTimeout(ctx, 15*time.Second)

		rows, err := c.conn.Query(queryCtx, query)
		if err != nil {
			lastErr = err
			cancel()

			if strings.Contains(err.Error(), "EOF") {
				logrus.Warnf("EOF error during query execution, will retry: %v", err)
				continue
			}

			logrus.Errorf("Error executing query: %v", err)
			continue
		}

		result, err := scanRows(rows)
		rows.Close()
		cancel()
		if err != nil {
			lastErr = err
			if strings.Contains(err.Error(), "EOF") {
				logrus.Warnf("EOF error during row iteration, will retry: %v", err)
				continue
			}
			return nil, err
		}

		logrus.Debugf("Successfully executed query with %d rows", len(result))
		return result, nil
	}

	return nil, fmt.Errorf("failed to execute query after %d attempts: %w", maxRetries, lastErr)
}

// scanRows drains a result set into maps keyed by column name
func scanRows(rows driver.Rows) ([]map[string]interface{}, error) {
	columnNames := rows.Columns()
	columnTypes := rows.ColumnTypes()

	result := make([]map[string]interface{}, 0)
	for rows.Next() {
		scanArgs := make([]interface{}, len(columnNames))
		for i, ct := range columnTypes {
			scanArgs[i] = reflect.New(ct.ScanType()).Interface()
		}

		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]interface{})
		for i, name := range columnNames {
			rowMap[name] = reflect.ValueOf(scanArgs[i]).Elem().Interface()
		}
		result = append(result, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

// StreamQuery executes an unbounded streaming query and calls the callback for
// every emitted row. It blocks until the context is cancelled or the stream
// fails; cancellation is the caller's unsubscribe handle.
func (c *Client) StreamQuery(ctx context.Context, query string, callback func(row map[string]interface{})) error {
	rows, err := c.conn.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to execute streaming query: %w", err)
	}
	defer rows.Close()

	columnNames := rows.Columns()
	columnTypes := rows.ColumnTypes()

	for rows.Next() {
		rowScan := make([]interface{}, len(columnNames))
		for i, ct := range columnTypes {
			rowScan[i] = reflect.New(ct.ScanType()).Interface()
		}

		if err := rows.Scan(rowScan...); err != nil {
			logrus.Errorf("Error scanning streaming row: %v", err)
			return fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]interface{})
		for i, colName := range columnNames {
			rowMap[colName] = reflect.ValueOf(rowScan[i]).Elem().Interface()
		}

		callback(rowMap)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return rows.Err()
}

// reconnect tries to reestablish the connection with retries
func (c *Client) reconnect(ctx context.Context) error {
	logrus.Info("Attempting to reconnect to Timeplus...")

	if c.conn != nil {
		c.conn.Close()
	}

	var err error
	var conn driver.Conn

	maxRetries := 5
	baseDelay := 1 * time.Second

	for i := 0; i < maxRetries; i++ {
		delay := time.Duration(1<<uint(i)) * baseDelay
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}

		logrus.Infof("Reconnection attempt %d/%d (delay: %v)...", i+1, maxRetries, delay)

		// Jitter to prevent thundering herd
		jitter := time.Duration(float64(delay) * (0.5 + 0.5*float64(time.Now().Nanosecond())/float64(1e9)))
		time.Sleep(jitter)

		conn, err = proton.Open(c.opts)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			pingErr := conn.Ping(pingCtx)
			cancel()

			if pingErr == nil {
				c.conn = conn
				logrus.Info("Successfully reconnected to Timeplus")
				return nil
			}

			logrus.Warnf("Connection established but ping failed: %v", pingErr)
			conn.Close()
			err = pingErr
		} else {
			logrus.Warnf("Failed to reconnect: %v", err)
		}
	}

	return fmt.Errorf("failed to reconnect after %d attempts: %w", maxRetries, err)
}

// InsertIntoStream inserts a row into a stream. On a mutable stream this is an
// upsert: a row with an existing primary key replaces the stored row.
func (c *Client) InsertIntoStream(ctx context.Context, streamName string, columns []string, values []interface{}) error {
	maxRetries := 5
	var lastErr error

	columnList := strings.Join(columns, ", ")

	formattedValues := make([]string, len(values))
	for i, val := range values {
		switch v := val.(type) {
		case nil:
			formattedValues[i] = "null"
		case string:
			formattedValues[i] = fmt.Sprintf("'%s'", strings.ReplaceAll(v, "'", "''"))
		case time.Time:
			formattedValues[i] = fmt.Sprintf("'%s'", v.Format("2006-01-02 15:04:05.000"))
		case bool:
			formattedValues[i] = fmt.Sprintf("%t", v)
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			formattedValues[i] = fmt.Sprintf("%d", v)
		case float32, float64:
			formattedValues[i] = fmt.Sprintf("%f", v)
		default:
			formattedValues[i] = fmt.Sprintf("'%v'", v)
		}
	}

	valuesList := strings.Join(formattedValues, ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", streamName, columnList, valuesList)

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			logrus.Warnf("Retrying insertion to stream '%s' (attempt %d/%d) after error: %v",
				streamName, attempt+1, maxRetries, lastErr)

			if lastErr != nil && strings.Contains(lastErr.Error(), "EOF") {
				logrus.Warnf("Got EOF error, attempting to reconnect before retry")
				reconnCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				if err := c.reconnect(reconnCtx); err != nil {
					logrus.Errorf("Failed to reconnect: %v", err)
				}
				cancel()
			}

			baseDelay := time.Duration(1<<uint(attempt-1)) * time.Second
			if baseDelay > 10*time.Second {
				baseDelay = 10 * time.Second
			}
			jitter := time.Duration(float64(baseDelay) * (0.75 + 0.5*float64(time.Now().Nanosecond())/float64(1e9)))
			time.Sleep(jitter)
		}

		err := c.conn.Exec(ctx, query)
		if err == nil {
			return nil
		}

		lastErr = err
		logrus.Warnf("Insert failed (attempt %d/%d): %v", attempt+1, maxRetries, err)
	}

	return fmt.Errorf("failed to insert into stream after %d attempts: %w", maxRetries, lastErr)
}

// ListStreams returns a list of all streams in the workspace
func (c *Client) ListStreams(ctx context.Context) ([]string, error) {
	rows, err := c.conn.Query(ctx, "SHOW STREAMS")
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columnNames := rows.Columns()
	nameIdx := -1
	for i, name := range columnNames {
		if name == "name" {
			nameIdx = i
			break
		}
	}
	if nameIdx == -1 {
		return nil, fmt.Errorf("no 'name' column found in SHOW STREAMS result")
	}

	streams := make([]string, 0)
	for rows.Next() {
		columnTypes := rows.ColumnTypes()
		scanArgs := make([]interface{}, len(columnNames))
		for i, ct := range columnTypes {
			scanArgs[i] = reflect.New(ct.ScanType()).Interface()
		}

		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if name, ok := reflect.ValueOf(scanArgs[nameIdx]).Elem().Interface().(string); ok {
			streams = append(streams, name)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return streams, nil
}

// ExecuteDDL executes a DDL statement like CREATE or DROP
func (c *Client) ExecuteDDL(ctx context.Context, query string) error {
	if err := c.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to execute DDL query '%s': %w", query, err)
	}
	return nil
}
