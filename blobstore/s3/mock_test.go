package s3

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/mock"
)

type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.GetObjectOutput), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.DeleteObjectOutput), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.ListObjectsV2Output), args.Error(1)
	}

	return nil, args.Error(1)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	args := m.Called(ctx, input)
	if out := args.Get(0); out != nil {
		return out.(*manager.UploadOutput), args.Error(1)
	}

	return nil, args.Error(1)
}

// ddbReservedWords holds the DynamoDB reserved words used by the snapshot table.
var ddbReservedWords = []string{"collection", "version"}

var ddbToken = regexp.MustCompile(`#?[A-Za-z_][A-Za-z0-9_]*`)

// checkExpression rejects expressions the way DynamoDB does: reserved words must be aliased
// through ExpressionAttributeNames, and every alias must be defined.
func checkExpression(expr string, names map[string]string) error {
	for _, tok := range ddbToken.FindAllString(expr, -1) {
		if strings.HasPrefix(tok, "#") {
			if _, ok := names[tok]; !ok {
				return fmt.Errorf("ValidationException: undefined attribute name %s", tok)
			}

			continue
		}
		if slices.Contains(ddbReservedWords, strings.ToLower(tok)) {
			return fmt.Errorf("ValidationException: attribute name is a reserved keyword: %s", tok)
		}
	}

	return nil
}

// mockDDBClient is an in-memory DynamoDB table honoring attribute_not_exists conditions.
type mockDDBClient struct {
	mu    sync.Mutex
	items map[string]map[string]ddbtypes.AttributeValue

	lastPut   *dynamodb.PutItemInput
	lastQuery *dynamodb.QueryInput
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{items: make(map[string]map[string]ddbtypes.AttributeValue)}
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastPut = params
	cond := aws.ToString(params.ConditionExpression)
	if err := checkExpression(cond, params.ExpressionAttributeNames); err != nil {
		return nil, err
	}

	name := params.Item["collection"].(*ddbtypes.AttributeValueMemberS).Value
	version := params.Item["version"].(*ddbtypes.AttributeValueMemberN).Value
	key := name + ":" + version

	if cond == "attribute_not_exists(#v)" && params.ExpressionAttributeNames["#v"] == "version" {
		if _, exists := m.items[key]; exists {
			return nil, &ddbtypes.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}
	m.items[key] = params.Item

	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastQuery = params
	if err := checkExpression(aws.ToString(params.KeyConditionExpression), params.ExpressionAttributeNames); err != nil {
		return nil, err
	}

	name := params.ExpressionAttributeValues[":c"].(*ddbtypes.AttributeValueMemberS).Value

	var items []map[string]ddbtypes.AttributeValue
	for _, item := range m.items {
		if item["collection"].(*ddbtypes.AttributeValueMemberS).Value == name {
			items = append(items, item)
		}
	}

	version := func(item map[string]ddbtypes.AttributeValue) uint64 {
		v, _ := strconv.ParseUint(item["version"].(*ddbtypes.AttributeValueMemberN).Value, 10, 64)
		return v
	}
	sort.Slice(items, func(i, j int) bool {
		if aws.ToBool(params.ScanIndexForward) {
			return version(items[i]) < version(items[j])
		}

		return version(items[i]) > version(items[j])
	})

	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: items}, nil
}
