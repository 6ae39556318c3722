package intake

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// All submissions share one partition; the sort key is the ULID so a reverse
// query returns newest first.
const submissionsPK = "SUBMISSIONS"

type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type dynamoItem struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
	Submission
}

// DynamoRepo implements SubmissionRepo on a DynamoDB table keyed by PK/SK.
type DynamoRepo struct {
	DB    dynamoAPI
	Table string
}

// NewDynamoRepo loads AWS config for region and returns a repo for table.
func NewDynamoRepo(ctx context.Context, region, table string) (*DynamoRepo, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &DynamoRepo{DB: dynamodb.NewFromConfig(cfg), Table: table}, nil
}

// Append writes a submission. Existing ids are never overwritten.
func (r *DynamoRepo) Append(ctx context.Context, sub Submission) error {
	if sub.Status == "" {
		sub.Status = StatusReceived
	}
	item, err := attributevalue.MarshalMap(dynamoItem{PK: submissionsPK, SK: "SUB#" + sub.ID, Submission: sub})
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.Table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("put submission: %w", err)
	}
	return nil
}

// List queries the newest submissions.
func (r *DynamoRepo) List(ctx context.Context, limit int) ([]Submission, error) {
	out, err := r.DB.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.Table),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: submissionsPK},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(clampLimit(limit))),
	})
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	var items []dynamoItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("unmarshal submissions: %w", err)
	}
	subs := make([]Submission, 0, len(items))
	for _, it := range items {
		subs = append(subs, it.Submission)
	}
	return subs, nil
}

var _ SubmissionRepo = (*DynamoRepo)(nil)
