package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basinlabs/pgwire-gateway/internal/pgerrors"
)

type fakeAPI struct {
	beginCalls    int
	commitCalls   int
	rollbackCalls int
	executeCalls  int

	beginErr, commitErr, rollbackErr, executeErr error
	executeOutput                                *rdsdata.ExecuteStatementOutput
	lastExecuteInput                              *rdsdata.ExecuteStatementInput
}

func (f *fakeAPI) ExecuteStatement(ctx context.Context, params *rdsdata.ExecuteStatementInput, optFns ...func(*rdsdata.Options)) (*rdsdata.ExecuteStatementOutput, error) {
	f.executeCalls++
	f.lastExecuteInput = params
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	if f.executeOutput != nil {
		return f.executeOutput, nil
	}
	return &rdsdata.ExecuteStatementOutput{}, nil
}

func (f *fakeAPI) BeginTransaction(ctx context.Context, params *rdsdata.BeginTransactionInput, optFns ...func(*rdsdata.Options)) (*rdsdata.BeginTransactionOutput, error) {
	f.beginCalls++
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &rdsdata.BeginTransactionOutput{TransactionId: aws.String("tx-1")}, nil
}

func (f *fakeAPI) CommitTransaction(ctx context.Context, params *rdsdata.CommitTransactionInput, optFns ...func(*rdsdata.Options)) (*rdsdata.CommitTransactionOutput, error) {
	f.commitCalls++
	return &rdsdata.CommitTransactionOutput{}, f.commitErr
}

func (f *fakeAPI) RollbackTransaction(ctx context.Context, params *rdsdata.RollbackTransactionInput, optFns ...func(*rdsdata.Options)) (*rdsdata.RollbackTransactionOutput, error) {
	f.rollbackCalls++
	return &rdsdata.RollbackTransactionOutput{}, f.rollbackErr
}

type noopLogger struct{}

func (noopLogger) Error(msg string, args ...interface{}) {}

func TestBeginCommitTransactionLifecycle(t *testing.T) {
	api := &fakeAPI{}
	client := New(api, "cluster-arn", "secret-arn", "appdb", noopLogger{})

	require.NoError(t, client.BeginTransaction(context.Background()))
	assert.True(t, client.IsInTransaction())

	txID, ok := client.GetTransactionID()
	assert.True(t, ok)
	assert.Equal(t, "tx-1", txID)

	require.NoError(t, client.CommitTransaction(context.Background()))
	assert.False(t, client.IsInTransaction())
	assert.Equal(t, 1, api.beginCalls)
	assert.Equal(t, 1, api.commitCalls)
}

func TestBeginTransactionFailsWhenAlreadyOpen(t *testing.T) {
	api := &fakeAPI{}
	client := New(api, "cluster", "secret", "db", noopLogger{})
	require.NoError(t, client.BeginTransaction(context.Background()))

	err := client.BeginTransaction(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, api.beginCalls)
}

func TestCommitClearsTransactionIDEvenOnFailure(t *testing.T) {
	api := &fakeAPI{commitErr: errors.New("boom")}
	client := New(api, "cluster", "secret", "db", noopLogger{})
	require.NoError(t, client.BeginTransaction(context.Background()))

	err := client.CommitTransaction(context.Background())
	assert.Error(t, err)
	assert.False(t, client.IsInTransaction())
}

func TestRollbackWithoutOpenTransactionFails(t *testing.T) {
	client := New(&fakeAPI{}, "cluster", "secret", "db", noopLogger{})
	err := client.RollbackTransaction(context.Background())
	assert.Error(t, err)
}

func TestCleanupRollsBackOpenTransaction(t *testing.T) {
	api := &fakeAPI{}
	client := New(api, "cluster", "secret", "db", noopLogger{})
	require.NoError(t, client.BeginTransaction(context.Background()))

	client.Cleanup(context.Background())
	assert.Equal(t, 1, api.rollbackCalls)
	assert.False(t, client.IsInTransaction())
}

func TestCleanupNoopWhenNoTransaction(t *testing.T) {
	api := &fakeAPI{}
	client := New(api, "cluster", "secret", "db", noopLogger{})
	client.Cleanup(context.Background())
	assert.Equal(t, 0, api.rollbackCalls)
}

func TestExecuteIncludesTransactionID(t *testing.T) {
	api := &fakeAPI{}
	client := New(api, "cluster", "secret", "db", noopLogger{})
	require.NoError(t, client.BeginTransaction(context.Background()))

	_, err := client.Execute(context.Background(), "SELECT 1", nil)
	require.NoError(t, err)
	require.NotNil(t, api.lastExecuteInput.TransactionId)
	assert.Equal(t, "tx-1", aws.ToString(api.lastExecuteInput.TransactionId))
}

func TestExecuteNormalizesColumnMetadata(t *testing.T) {
	api := &fakeAPI{
		executeOutput: &rdsdata.ExecuteStatementOutput{
			ColumnMetadata: []types.ColumnMetadata{
				{Name: aws.String("id"), TypeName: aws.String("int8")},
				{Name: aws.String("name"), TypeName: aws.String("text"), Nullable: 1},
			},
			Records: [][]types.Field{},
		},
	}
	api.executeOutput.Records = [][]types.Field{}

	client := New(api, "cluster", "secret", "db", noopLogger{})
	result, err := client.Execute(context.Background(), "SELECT id, name FROM t", nil)
	require.NoError(t, err)
	assert.Equal(t, "id", result.Columns[0].Name)
	assert.True(t, result.Columns[1].Nullable)
}

func TestExecuteParsesJSONColumns(t *testing.T) {
	api := &fakeAPI{
		executeOutput: &rdsdata.ExecuteStatementOutput{
			ColumnMetadata: []types.ColumnMetadata{
				{Name: aws.String("data"), TypeName: aws.String("jsonb")},
				{Name: aws.String("label"), TypeName: aws.String("text")},
			},
			Records: [][]types.Field{
				{
					&types.FieldMemberStringValue{Value: `{"a":1,"b":["x","y"]}`},
					&types.FieldMemberStringValue{Value: "plain text"},
				},
			},
		},
	}

	client := New(api, "cluster", "secret", "db", noopLogger{})
	result, err := client.Execute(context.Background(), "SELECT data, label FROM t", nil)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	decoded, ok := result.Records[0]["data"].(map[string]interface{})
	require.True(t, ok, "expected jsonb column to decode into a map, got %T", result.Records[0]["data"])
	assert.Equal(t, float64(1), decoded["a"])
	assert.Equal(t, "plain text", result.Records[0]["label"])
}

func TestExecuteLeavesInvalidJSONAsString(t *testing.T) {
	api := &fakeAPI{
		executeOutput: &rdsdata.ExecuteStatementOutput{
			ColumnMetadata: []types.ColumnMetadata{
				{Name: aws.String("data"), TypeName: aws.String("json")},
			},
			Records: [][]types.Field{
				{&types.FieldMemberStringValue{Value: "not json"}},
			},
		},
	}

	client := New(api, "cluster", "secret", "db", noopLogger{})
	result, err := client.Execute(context.Background(), "SELECT data FROM t", nil)
	require.NoError(t, err)
	assert.Equal(t, "not json", result.Records[0]["data"])
}

func TestEncodeFieldTagsValues(t *testing.T) {
	assert.IsType(t, &types.FieldMemberIsNull{}, encodeField(nil))
	assert.IsType(t, &types.FieldMemberStringValue{}, encodeField("hi"))
	assert.IsType(t, &types.FieldMemberLongValue{}, encodeField(int64(4)))
	assert.IsType(t, &types.FieldMemberDoubleValue{}, encodeField(3.14))
	assert.IsType(t, &types.FieldMemberBooleanValue{}, encodeField(true))
	assert.IsType(t, &types.FieldMemberBlobValue{}, encodeField([]byte{1, 2}))
}

func TestMapErrorUnrecognizedDefaultsToInternal(t *testing.T) {
	mapped := MapError(errors.New("mystery failure"))
	assert.Equal(t, "XX000", string(pgerrors.GetCode(mapped)))
}
