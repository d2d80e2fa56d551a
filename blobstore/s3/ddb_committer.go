package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/xid"

	"github.com/arloliu/segcoll/errs"
)

// DDBClient is the subset of the DynamoDB API used by DDBCommitter.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DDBCommitter records committed snapshot versions in a DynamoDB table. S3 has no
// compare-and-swap, so the table is the source of truth for which manifest is current and
// a conditional put keeps two writers from committing the same version.
//
// Table schema:
//   - Partition key: collection (string)
//   - Sort key: version (number)
//   - Attribute: save_id (string), the save id naming the version's blobs
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name segcoll-snapshots \
//	  --attribute-definitions AttributeName=collection,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=collection,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCommitter struct {
	client DDBClient
	table  string
}

// NewDDBCommitter creates a committer backed by the given table.
func NewDDBCommitter(client DDBClient, table string) *DDBCommitter {
	return &DDBCommitter{client: client, table: table}
}

// NewDDBCommitterFromConfig creates a committer from the default AWS configuration chain.
func NewDDBCommitterFromConfig(ctx context.Context, table string, optFns ...func(*config.LoadOptions) error) (*DDBCommitter, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	return NewDDBCommitter(dynamodb.NewFromConfig(cfg), table), nil
}

// Latest returns the highest committed version of a collection and its save id, or 0 if
// none.
func (c *DDBCommitter) Latest(ctx context.Context, name string) (uint64, xid.ID, error) {
	// collection and version are DynamoDB reserved words and must go through placeholders
	resp, err := c.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(c.table),
		KeyConditionExpression:   aws.String("#c = :c"),
		ExpressionAttributeNames: map[string]string{"#c": "collection"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: name},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, xid.NilID(), fmt.Errorf("s3: query latest version of %s: %w", name, err)
	}
	if len(resp.Items) == 0 {
		return 0, xid.NilID(), nil
	}

	item := resp.Items[0]
	attr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, xid.NilID(), fmt.Errorf("s3: invalid version attribute for %s", name)
	}
	version, err := strconv.ParseUint(attr.Value, 10, 64)
	if err != nil {
		return 0, xid.NilID(), fmt.Errorf("s3: parse version of %s: %w", name, err)
	}

	idAttr, ok := item["save_id"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, xid.NilID(), fmt.Errorf("s3: invalid save_id attribute for %s", name)
	}
	saveID, err := xid.FromString(idAttr.Value)
	if err != nil {
		return 0, xid.NilID(), fmt.Errorf("s3: parse save id of %s: %w", name, err)
	}

	return version, saveID, nil
}

// Commit records version, written by the Save with saveID, as committed. It fails with
// ErrConcurrentCommit if the version was already committed by another writer.
func (c *DDBCommitter) Commit(ctx context.Context, name string, version uint64, saveID xid.ID) error {
	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: name},
			"version":    &types.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
			"save_id":    &types.AttributeValueMemberS{Value: saveID.String()},
		},
		ConditionExpression:      aws.String("attribute_not_exists(#v)"),
		ExpressionAttributeNames: map[string]string{"#v": "version"},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: %s version %d", errs.ErrConcurrentCommit, name, version)
		}

		return fmt.Errorf("s3: commit %s version %d: %w", name, version, err)
	}

	return nil
}
