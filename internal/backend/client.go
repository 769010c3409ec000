// Package backend implements component E: the client that issues remote SQL
// calls against the managed cloud SQL execution service, owns the
// transaction-identifier lifecycle, and normalizes results, per spec §4.E.
//
// The backend modeled here is the AWS RDS Data API; aws-sdk-go-v2's
// service/rdsdata client is the literal HTTP transport spec §4.E describes,
// and its types.Field union is the literal tagged-value scheme spec §6
// requires (isNull/stringValue/longValue/doubleValue/booleanValue/blobValue).
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata/types"

	"github.com/basinlabs/pgwire-gateway/internal/queryresult"
)

// DataAPI is the subset of the generated rdsdata client this package
// depends on. Abstracting it behind an interface lets tests substitute a
// fake without reaching over HTTP, per spec §9's guidance to expose only
// well-typed operations around the transaction id.
type DataAPI interface {
	ExecuteStatement(ctx context.Context, params *rdsdata.ExecuteStatementInput, optFns ...func(*rdsdata.Options)) (*rdsdata.ExecuteStatementOutput, error)
	BeginTransaction(ctx context.Context, params *rdsdata.BeginTransactionInput, optFns ...func(*rdsdata.Options)) (*rdsdata.BeginTransactionOutput, error)
	CommitTransaction(ctx context.Context, params *rdsdata.CommitTransactionInput, optFns ...func(*rdsdata.Options)) (*rdsdata.CommitTransactionOutput, error)
	RollbackTransaction(ctx context.Context, params *rdsdata.RollbackTransactionInput, optFns ...func(*rdsdata.Options)) (*rdsdata.RollbackTransactionOutput, error)
}

// Client owns exactly one connection's worth of backend state: the current
// transaction identifier, if any. Per spec §3 a Client is never shared
// across connections and at most one transaction id is held at a time.
type Client struct {
	api           DataAPI
	clusterARN    string
	secretARN     string
	database      string
	logger        Logger

	mu            sync.Mutex
	transactionID string
}

// Logger is the minimal logging surface Client needs; *slog.Logger
// satisfies it.
type Logger interface {
	Error(msg string, args ...interface{})
}

// New constructs a Client bound to one RDS Data API resource and database.
func New(api DataAPI, clusterARN, secretARN, database string, logger Logger) *Client {
	return &Client{api: api, clusterARN: clusterARN, secretARN: secretARN, database: database, logger: logger}
}

// IsInTransaction reports whether a backend transaction is currently held.
func (c *Client) IsInTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transactionID != ""
}

// GetTransactionID returns the currently held transaction id, if any.
func (c *Client) GetTransactionID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transactionID, c.transactionID != ""
}

// BeginTransaction opens a new backend transaction. It fails if one is
// already open.
func (c *Client) BeginTransaction(ctx context.Context) error {
	c.mu.Lock()
	if c.transactionID != "" {
		c.mu.Unlock()
		return NewError("25001", LevelError, "a transaction is already open", "")
	}
	c.mu.Unlock()

	out, err := c.api.BeginTransaction(ctx, &rdsdata.BeginTransactionInput{
		ResourceArn: aws.String(c.clusterARN),
		SecretArn:   aws.String(c.secretARN),
		Database:    aws.String(c.database),
	})
	if err != nil {
		return MapError(err)
	}

	c.mu.Lock()
	c.transactionID = aws.ToString(out.TransactionId)
	c.mu.Unlock()
	return nil
}

// CommitTransaction commits the currently open transaction. The identifier
// is cleared whether the call succeeds or fails, per spec §3's invariant.
func (c *Client) CommitTransaction(ctx context.Context) error {
	c.mu.Lock()
	txID := c.transactionID
	c.mu.Unlock()

	if txID == "" {
		return NewError("2D000", LevelError, "no transaction is open", "")
	}

	_, err := c.api.CommitTransaction(ctx, &rdsdata.CommitTransactionInput{
		ResourceArn:   aws.String(c.clusterARN),
		SecretArn:     aws.String(c.secretARN),
		TransactionId: aws.String(txID),
	})

	c.mu.Lock()
	c.transactionID = ""
	c.mu.Unlock()

	if err != nil {
		return MapError(err)
	}
	return nil
}

// RollbackTransaction rolls back the currently open transaction. Same
// clear-on-either-outcome contract as CommitTransaction.
func (c *Client) RollbackTransaction(ctx context.Context) error {
	c.mu.Lock()
	txID := c.transactionID
	c.mu.Unlock()

	if txID == "" {
		return NewError("2D000", LevelError, "no transaction is open", "")
	}

	_, err := c.api.RollbackTransaction(ctx, &rdsdata.RollbackTransactionInput{
		ResourceArn:   aws.String(c.clusterARN),
		SecretArn:     aws.String(c.secretARN),
		TransactionId: aws.String(txID),
	})

	c.mu.Lock()
	c.transactionID = ""
	c.mu.Unlock()

	if err != nil {
		return MapError(err)
	}
	return nil
}

// Cleanup rolls back any open transaction, logging but swallowing errors.
// Intended for connection teardown (spec §4.G's terminate transition).
func (c *Client) Cleanup(ctx context.Context) {
	if !c.IsInTransaction() {
		return
	}

	if err := c.RollbackTransaction(ctx); err != nil {
		c.logger.Error("backend cleanup rollback failed", "error", err)
	}
}

// Execute sends sql and named parameters to the backend, including the
// current transaction id if one is held, and normalizes the response.
func (c *Client) Execute(ctx context.Context, sql string, parameters map[string]interface{}) (queryresult.Result, error) {
	input := &rdsdata.ExecuteStatementInput{
		ResourceArn:           aws.String(c.clusterARN),
		SecretArn:             aws.String(c.secretARN),
		Database:              aws.String(c.database),
		Sql:                   aws.String(sql),
		IncludeResultMetadata: true,
		Parameters:            encodeParameters(parameters),
	}

	if txID, ok := c.GetTransactionID(); ok {
		input.TransactionId = aws.String(txID)
	}

	out, err := c.api.ExecuteStatement(ctx, input)
	if err != nil {
		return queryresult.Result{}, MapError(err)
	}

	return normalize(out), nil
}

// encodeParameters applies spec §4.E's inferred value-tagging to a map of
// named Go values, producing the rdsdata SqlParameter slice in a stable,
// deterministic order for testability.
func encodeParameters(parameters map[string]interface{}) []types.SqlParameter {
	if len(parameters) == 0 {
		return nil
	}

	names := make([]string, 0, len(parameters))
	for name := range parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.SqlParameter, 0, len(parameters))
	for _, name := range names {
		out = append(out, types.SqlParameter{
			Name:  aws.String(name),
			Value: encodeField(parameters[name]),
		})
	}
	return out
}

// encodeField maps a single Go runtime value to the tagged-union Field value
// spec §4.E requires: null -> isNull; string -> stringValue; integer in
// signed-32 range -> longValue; other number -> doubleValue; boolean ->
// booleanValue; timestamp -> ISO string; byte sequence -> blobValue; other
// object -> JSON text.
func encodeField(value interface{}) types.Field {
	switch v := value.(type) {
	case nil:
		return &types.FieldMemberIsNull{Value: true}
	case string:
		return &types.FieldMemberStringValue{Value: v}
	case bool:
		return &types.FieldMemberBooleanValue{Value: v}
	case int:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return &types.FieldMemberLongValue{Value: int64(v)}
		}
		return &types.FieldMemberDoubleValue{Value: float64(v)}
	case int32:
		return &types.FieldMemberLongValue{Value: int64(v)}
	case int64:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return &types.FieldMemberLongValue{Value: v}
		}
		return &types.FieldMemberDoubleValue{Value: float64(v)}
	case float32:
		return &types.FieldMemberDoubleValue{Value: float64(v)}
	case float64:
		return &types.FieldMemberDoubleValue{Value: v}
	case time.Time:
		return &types.FieldMemberStringValue{Value: v.UTC().Format(time.RFC3339Nano)}
	case []byte:
		return &types.FieldMemberBlobValue{Value: v}
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return &types.FieldMemberStringValue{Value: fmt.Sprintf("%v", v)}
		}
		return &types.FieldMemberStringValue{Value: string(encoded)}
	}
}

// normalize converts an rdsdata ExecuteStatementOutput into the discriminated
// form spec §9 requires, decoding every Field via a single conversion
// function rather than importing rows as untyped maps.
func normalize(out *rdsdata.ExecuteStatementOutput) queryresult.Result {
	columns := make([]queryresult.Column, 0, len(out.ColumnMetadata))
	for _, meta := range out.ColumnMetadata {
		columns = append(columns, queryresult.Column{
			Name:     aws.ToString(meta.Name),
			TypeName: aws.ToString(meta.TypeName),
			Nullable: meta.Nullable != 0,
		})
	}

	records := make([]queryresult.Row, 0, len(out.Records))
	for _, record := range out.Records {
		row := make(queryresult.Row, len(columns))
		for i, field := range record {
			var name, typeName string
			if i < len(columns) {
				name = columns[i].Name
				typeName = columns[i].TypeName
			}
			row[name] = decodeField(field, typeName)
		}
		records = append(records, row)
	}

	result := queryresult.Result{Columns: columns, Records: records}
	if out.NumberOfRecordsUpdated != 0 || len(records) == 0 {
		count := out.NumberOfRecordsUpdated
		result.UpdatedCount = &count
	}
	return result
}

// isJSONTypeName reports whether typeName names one of the JSON column
// types spec §4.E requires parsing payloads for.
func isJSONTypeName(typeName string) bool {
	switch strings.ToLower(typeName) {
	case "json", "jsonb":
		return true
	default:
		return false
	}
}

// decodeField is the single conversion function from the backend's
// tagged-union Field representation to a typed Go value. For JSON-typed
// columns the string payload is parsed into its Go representation (map,
// slice, or scalar) rather than left as raw text, per spec §4.E; a payload
// that fails to parse is passed through as the original string so a
// malformed value from the backend doesn't turn into a dropped row.
func decodeField(field types.Field, typeName string) interface{} {
	switch v := field.(type) {
	case *types.FieldMemberIsNull:
		return nil
	case *types.FieldMemberStringValue:
		if isJSONTypeName(typeName) {
			var decoded interface{}
			if err := json.Unmarshal([]byte(v.Value), &decoded); err == nil {
				return decoded
			}
		}
		return v.Value
	case *types.FieldMemberLongValue:
		return v.Value
	case *types.FieldMemberDoubleValue:
		return v.Value
	case *types.FieldMemberBooleanValue:
		return v.Value
	case *types.FieldMemberBlobValue:
		return v.Value
	case *types.FieldMemberArrayValue:
		return nil
	default:
		return nil
	}
}
