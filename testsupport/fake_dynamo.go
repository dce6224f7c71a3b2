// Package testsupport provides an in-memory stand-in for the DynamoDB client
// so service tests can exercise real store semantics, including the
// conditional transaction guard, without a network.
package testsupport

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type keySchema struct {
	pk string
	sk string
}

// FakeDynamo implements services.DynamoDBAPI over in-memory maps. It knows
// the key schema of each table the services touch, honors
// attribute_not_exists conditions in transactions, and applies ADD on string
// sets the way DynamoDB does.
type FakeDynamo struct {
	mu      sync.Mutex
	schemas map[string]keySchema
	tables  map[string]map[string]map[string]types.AttributeValue
}

// NewFakeDynamo builds a fake preloaded with the application's table schemas.
func NewFakeDynamo() *FakeDynamo {
	return &FakeDynamo{
		schemas: map[string]keySchema{
			"Users":         {pk: "userId"},
			"MatchRequests": {pk: "requestId"},
			"Matches":       {pk: "pairKey"},
			"Chats":         {pk: "chatId"},
			"Messages":      {pk: "chatId", sk: "createdAt"},
		},
		tables: make(map[string]map[string]map[string]types.AttributeValue),
	}
}

func avString(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (f *FakeDynamo) schema(table string) (keySchema, error) {
	s, ok := f.schemas[table]
	if !ok {
		return keySchema{}, fmt.Errorf("unknown table %q", table)
	}
	return s, nil
}

func (f *FakeDynamo) storageKey(table string, attrs map[string]types.AttributeValue) (string, error) {
	s, err := f.schema(table)
	if err != nil {
		return "", err
	}
	pk := avString(attrs[s.pk])
	if pk == "" {
		return "", fmt.Errorf("missing partition key %q for table %q", s.pk, table)
	}
	if s.sk == "" {
		return pk, nil
	}
	sk := avString(attrs[s.sk])
	if sk == "" {
		return "", fmt.Errorf("missing sort key %q for table %q", s.sk, table)
	}
	return pk + "\x00" + sk, nil
}

func (f *FakeDynamo) rows(table string) map[string]map[string]types.AttributeValue {
	rows, ok := f.tables[table]
	if !ok {
		rows = make(map[string]map[string]types.AttributeValue)
		f.tables[table] = rows
	}
	return rows
}

// GetItem returns the stored item or a nil Item, matching the real client.
func (f *FakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key, err := f.storageKey(*params.TableName, params.Key)
	if err != nil {
		return nil, err
	}

	item, ok := f.rows(*params.TableName)[key]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

// PutItem stores the item, overwriting any existing row under the same key.
func (f *FakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key, err := f.storageKey(*params.TableName, params.Item)
	if err != nil {
		return nil, err
	}

	f.rows(*params.TableName)[key] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// UpdateItem supports the "ADD <attr> :val" form on string sets, which is
// the only update expression the services issue.
func (f *FakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	expr := strings.TrimSpace(*params.UpdateExpression)
	fields := strings.Fields(expr)
	if len(fields) != 3 || !strings.EqualFold(fields[0], "ADD") {
		return nil, fmt.Errorf("unsupported update expression %q", expr)
	}
	attr := fields[1]
	if resolved, ok := params.ExpressionAttributeNames[attr]; ok {
		attr = resolved
	}
	value, ok := params.ExpressionAttributeValues[fields[2]]
	if !ok {
		return nil, fmt.Errorf("unbound expression value %q", fields[2])
	}
	addSet, ok := value.(*types.AttributeValueMemberSS)
	if !ok {
		return nil, fmt.Errorf("ADD on %q expects a string set", attr)
	}

	key, err := f.storageKey(*params.TableName, params.Key)
	if err != nil {
		return nil, err
	}

	rows := f.rows(*params.TableName)
	item, exists := rows[key]
	if !exists {
		item = copyItem(params.Key)
	} else {
		item = copyItem(item)
	}

	members := map[string]struct{}{}
	var merged []string
	if existing, ok := item[attr].(*types.AttributeValueMemberSS); ok {
		for _, m := range existing.Value {
			members[m] = struct{}{}
			merged = append(merged, m)
		}
	}
	for _, m := range addSet.Value {
		if _, dup := members[m]; !dup {
			merged = append(merged, m)
		}
	}
	item[attr] = &types.AttributeValueMemberSS{Value: merged}
	rows[key] = item

	return &dynamodb.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

// DeleteItem removes the row if present; deleting a missing key is a no-op.
func (f *FakeDynamo) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key, err := f.storageKey(*params.TableName, params.Key)
	if err != nil {
		return nil, err
	}
	delete(f.rows(*params.TableName), key)
	return &dynamodb.DeleteItemOutput{}, nil
}

// Query supports single-equality key conditions ("#a = :v"), which covers
// every query the services issue, on the base table or any GSI.
func (f *FakeDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	attr, want, err := parseEquality(*params.KeyConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	s, err := f.schema(*params.TableName)
	if err != nil {
		return nil, err
	}

	var matched []map[string]types.AttributeValue
	for _, item := range f.rows(*params.TableName) {
		if avString(item[attr]) == want {
			matched = append(matched, copyItem(item))
		}
	}

	sortAttr := s.sk
	if sortAttr == "" {
		sortAttr = s.pk
	}
	sort.Slice(matched, func(i, j int) bool {
		return avString(matched[i][sortAttr]) < avString(matched[j][sortAttr])
	})
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	if params.Limit != nil && int(*params.Limit) < len(matched) {
		matched = matched[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: matched, Count: int32(len(matched))}, nil
}

// Scan pages through the table in partition-key order, honoring
// ExclusiveStartKey and Limit the way the real client does.
func (f *FakeDynamo) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.schema(*params.TableName)
	if err != nil {
		return nil, err
	}

	var all []map[string]types.AttributeValue
	for _, item := range f.rows(*params.TableName) {
		all = append(all, copyItem(item))
	}
	sort.Slice(all, func(i, j int) bool {
		return avString(all[i][s.pk]) < avString(all[j][s.pk])
	})

	start := 0
	if params.ExclusiveStartKey != nil {
		after := avString(params.ExclusiveStartKey[s.pk])
		for i, item := range all {
			if avString(item[s.pk]) > after {
				start = i
				break
			}
			start = i + 1
		}
	}

	end := len(all)
	if params.Limit != nil && start+int(*params.Limit) < end {
		end = start + int(*params.Limit)
	}

	out := &dynamodb.ScanOutput{Items: all[start:end]}
	if end < len(all) && end > start {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			s.pk: &types.AttributeValueMemberS{Value: avString(all[end-1][s.pk])},
		}
	}
	return out, nil
}

// BatchWriteItem applies put and delete requests. Everything succeeds, so
// UnprocessedItems is always empty.
func (f *FakeDynamo) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for table, requests := range params.RequestItems {
		rows := f.rows(table)
		for _, req := range requests {
			if req.DeleteRequest != nil {
				key, err := f.storageKey(table, req.DeleteRequest.Key)
				if err != nil {
					return nil, err
				}
				delete(rows, key)
			}
			if req.PutRequest != nil {
				key, err := f.storageKey(table, req.PutRequest.Item)
				if err != nil {
					return nil, err
				}
				rows[key] = copyItem(req.PutRequest.Item)
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

// TransactWriteItems validates every condition before applying any write.
// A failed attribute_not_exists condition cancels the transaction with the
// same exception shape the real service returns.
func (f *FakeDynamo) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, item := range params.TransactItems {
		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		if item.Put == nil || item.Put.ConditionExpression == nil {
			continue
		}
		cond := strings.TrimSpace(*item.Put.ConditionExpression)
		if !strings.HasPrefix(cond, "attribute_not_exists(") || !strings.HasSuffix(cond, ")") {
			return nil, fmt.Errorf("unsupported condition expression %q", cond)
		}

		key, err := f.keyOfPut(item.Put)
		if err != nil {
			return nil, err
		}
		if _, exists := f.rows(*item.Put.TableName)[key]; exists {
			reasons[i] = types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled, please refer cancellation reasons for specific reasons"),
			CancellationReasons: reasons,
		}
	}

	for _, item := range params.TransactItems {
		switch {
		case item.Put != nil:
			key, err := f.keyOfPut(item.Put)
			if err != nil {
				return nil, err
			}
			f.rows(*item.Put.TableName)[key] = copyItem(item.Put.Item)
		case item.Delete != nil:
			key, err := f.storageKey(*item.Delete.TableName, item.Delete.Key)
			if err != nil {
				return nil, err
			}
			delete(f.rows(*item.Delete.TableName), key)
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *FakeDynamo) keyOfPut(put *types.Put) (string, error) {
	return f.storageKey(*put.TableName, put.Item)
}

func parseEquality(expr string, names map[string]string, values map[string]types.AttributeValue) (string, string, error) {
	parts := strings.SplitN(expr, "=", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("unsupported key condition %q", expr)
	}
	attr := strings.TrimSpace(parts[0])
	if resolved, ok := names[attr]; ok {
		attr = resolved
	}
	placeholder := strings.TrimSpace(parts[1])
	value, ok := values[placeholder]
	if !ok {
		return "", "", fmt.Errorf("unbound expression value %q", placeholder)
	}
	return attr, avString(value), nil
}
