// Package dynamodb stores journal entries in a DynamoDB table keyed by id.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/mindhaven/internal/domain"
)

// API is the subset of the DynamoDB client used by the store.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Options selects the table and the AWS endpoint. Endpoint is only set for
// DynamoDB Local.
type Options struct {
	Region   string
	Endpoint string
	Table    string
}

type item struct {
	ID    string `dynamodbav:"id"`
	Date  string `dynamodbav:"date"`
	Entry string `dynamodbav:"entry"`
}

// EntryStore keeps one item per entry. The table is small and unordered, so
// List scans it and sorts by date, breaking ties by id descending.
type EntryStore struct {
	api   API
	table string
	now   func() time.Time
}

var _ domain.EntryStore = (*EntryStore)(nil)

func New(ctx context.Context, opts Options) (*EntryStore, error) {
	if opts.Table == "" {
		return nil, fmt.Errorf("dynamodb table is empty")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return NewWithAPI(client, opts.Table), nil
}

func NewWithAPI(api API, table string) *EntryStore {
	return &EntryStore{api: api, table: table, now: time.Now}
}

func (s *EntryStore) Create(ctx context.Context, text string) (domain.Entry, error) {
	date := domain.FormatDate(s.now())
	created, err := domain.ParseDate(date)
	if err != nil {
		return domain.Entry{}, domain.NewStorageError("create", err)
	}

	it := item{ID: uuid.NewString(), Date: date, Entry: text}
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return domain.Entry{}, domain.NewStorageError("create", err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.Name("id").AttributeNotExists()).
		Build()
	if err != nil {
		return domain.Entry{}, domain.NewStorageError("create", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     av,
		ConditionExpression:      cond.Condition(),
		ExpressionAttributeNames: cond.Names(),
	})
	if err != nil {
		return domain.Entry{}, domain.NewStorageError("create", err)
	}
	return domain.Entry{ID: it.ID, CreatedAt: created, Text: text}, nil
}

func (s *EntryStore) List(ctx context.Context) ([]domain.Entry, error) {
	entries := make([]domain.Entry, 0)

	var startKey map[string]types.AttributeValue
	for {
		out, err := s.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, domain.NewStorageError("list", err)
		}

		var page []item
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, domain.NewStorageError("list", err)
		}
		for _, it := range page {
			created, err := domain.ParseDate(it.Date)
			if err != nil {
				return nil, domain.NewStorageError("list", fmt.Errorf("decode %s: %w", it.ID, err))
			}
			entries = append(entries, domain.Entry{ID: it.ID, CreatedAt: created, Text: it.Entry})
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})
	return entries, nil
}

func (s *EntryStore) Update(ctx context.Context, id, text string) error {
	expr, err := expression.NewBuilder().
		WithUpdate(expression.Set(expression.Name("entry"), expression.Value(text))).
		WithCondition(expression.Name("id").AttributeExists()).
		Build()
	if err != nil {
		return domain.NewStorageError("update", err)
	}

	_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return mapErr("update", id, err)
}

func (s *EntryStore) Delete(ctx context.Context, id string) error {
	cond, err := expression.NewBuilder().
		WithCondition(expression.Name("id").AttributeExists()).
		Build()
	if err != nil {
		return domain.NewStorageError("delete", err)
	}

	_, err = s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(s.table),
		Key:                      key(id),
		ConditionExpression:      cond.Condition(),
		ExpressionAttributeNames: cond.Names(),
	})
	return mapErr("delete", id, err)
}

func (s *EntryStore) Ping(ctx context.Context) error {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	return domain.NewStorageError("ping", err)
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func mapErr(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return domain.NotFound(id)
	}
	return domain.NewStorageError(op, err)
}
