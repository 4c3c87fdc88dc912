package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imrishuroy/go-checkout-pipeline/internal/aws"
)

// ErrStatusMismatch indicates a conditional status transition failed because
// the order was not in the expected state.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// ErrOrderExists indicates CreateWithItems hit an existing order id.
var ErrOrderExists = errors.New("order already exists")

// Store encapsulates operations on the orders, order_items and
// payment_attempts tables.
type Store struct {
	client        aws.DynamoDBAPI
	ordersTable   string
	itemsTable    string
	attemptsTable string
	nowFunc       func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, ordersTable, itemsTable, attemptsTable string) *Store {
	return &Store{
		client:        client,
		ordersTable:   ordersTable,
		itemsTable:    itemsTable,
		attemptsTable: attemptsTable,
		nowFunc:       time.Now,
	}
}

// CreateWithItems atomically creates the order row and its item rows in one
// TransactWriteItems call. The order put is guarded by
// attribute_not_exists(order_id) so a double submission of the same order id
// cannot produce two rows.
//
// Item rows use order_id + line_no keys; replaying the transaction after a
// partial failure overwrites the same rows rather than duplicating them.
func (s *Store) CreateWithItems(ctx context.Context, order Order, items []OrderItem) error {
	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	transactItems := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           &s.ordersTable,
				Item:                orderMap,
				ConditionExpression: awsString("attribute_not_exists(order_id)"),
			},
		},
	}

	for _, it := range items {
		itemMap, err := attributevalue.MarshalMap(it)
		if err != nil {
			return fmt.Errorf("marshal order line %d: %w", it.LineNo, err)
		}
		transactItems = append(transactItems, types.TransactWriteItem{
			Put: &types.Put{
				TableName: &s.itemsTable,
				Item:      itemMap,
			},
		})
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return ErrOrderExists
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.ordersTable,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// GetItems returns all item rows for an order.
func (s *Store) GetItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.itemsTable,
		KeyConditionExpression: awsString("order_id = :oid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":oid": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	items := make([]OrderItem, 0, len(out.Items))
	for _, raw := range out.Items {
		var it OrderItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, fmt.Errorf("unmarshal order line: %w", err)
		}
		items = append(items, it)
	}
	return items, nil
}

// UpdateStatus conditionally transitions the order status from expected ->
// newStatus. Returns ErrStatusMismatch if the order was not in the expected
// state, which callers use to detect duplicate or out-of-order callbacks.
func (s *Store) UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.ordersTable,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :new, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: newStatus},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":expected": &types.AttributeValueMemberS{Value: expectedStatus},
		},
		ConditionExpression: awsString("#s = :expected"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// MarkPaid transitions AWAITING_PAYMENT -> PAID and stores the structured
// payment reference in one conditional update. A duplicate delivery of the
// same verification fails the condition and surfaces as ErrStatusMismatch;
// the caller re-reads the order to confirm the earlier transition won.
func (s *Store) MarkPaid(ctx context.Context, orderID string, ref PaymentReference) error {
	now := s.nowFunc()
	refMap, err := attributevalue.MarshalMap(ref)
	if err != nil {
		return fmt.Errorf("marshal payment reference: %w", err)
	}

	input := &dyn.UpdateItemInput{
		TableName: &s.ordersTable,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :new, payment_reference = :ref, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: StatusPaid},
			":ref":      &types.AttributeValueMemberM{Value: refMap},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":expected": &types.AttributeValueMemberS{Value: StatusAwaitingPayment},
		},
		ConditionExpression: awsString("#s = :expected"),
	}

	_, err = s.client.UpdateItem(ctx, input)
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item (mark paid): %w", err)
	}
	return nil
}

// MarkNotified records that the customer notification went out, guarded by
// attribute_not_exists so a redelivered queue message cannot trigger a second
// email. Returns ErrStatusMismatch when the order was already notified.
func (s *Store) MarkNotified(ctx context.Context, orderID string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.ordersTable,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: awsString("SET notified_at = :na, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":na": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ConditionExpression: awsString("attribute_not_exists(notified_at)"),
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item (mark notified): %w", err)
	}
	return nil
}

// PutAttempt persists the in-flight payment record for an order, overwriting
// any previous attempt for the same order id (a retry supersedes it).
func (s *Store) PutAttempt(ctx context.Context, attempt PaymentAttempt, ttlWindow time.Duration) error {
	now := s.nowFunc()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	attempt.UpdatedAt = now
	if attempt.ExpiresAt == 0 && ttlWindow > 0 {
		attempt.ExpiresAt = now.Add(ttlWindow).Unix()
	}

	item, err := attributevalue.MarshalMap(attempt)
	if err != nil {
		return fmt.Errorf("marshal payment attempt: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.attemptsTable,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put attempt: %w", err)
	}
	return nil
}

// GetAttempt fetches the payment attempt for an order. Returns (nil, nil) if
// none exists.
func (s *Store) GetAttempt(ctx context.Context, orderID string) (*PaymentAttempt, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.attemptsTable,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var a PaymentAttempt
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal attempt: %w", err)
	}
	return &a, nil
}

// MarkAttemptState updates the attempt state (RETURNED, EXPIRED).
func (s *Store) MarkAttemptState(ctx context.Context, orderID, state string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.attemptsTable,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: awsString("SET #st = :st, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#st": "state",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":st": &types.AttributeValueMemberS{Value: state},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
