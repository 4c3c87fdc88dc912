package rates

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-checkout-pipeline/internal/aws"
	"github.com/imrishuroy/go-checkout-pipeline/internal/checkout"
)

// CouponStore looks up coupons by case-normalized code.
type CouponStore struct {
	client    aws.DynamoDBAPI
	tableName string
}

func NewCouponStore(client aws.DynamoDBAPI, tableName string) *CouponStore {
	return &CouponStore{client: client, tableName: tableName}
}

// Resolve fetches a coupon by code. Not-found and inactive both come back as
// ErrInvalidCoupon: the end user never learns which codes exist.
func (s *CouponStore) Resolve(ctx context.Context, code string) (*checkout.Coupon, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, checkout.ErrInvalidCoupon
	}

	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"code": &types.AttributeValueMemberS{Value: normalized},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, checkout.ErrInvalidCoupon
	}

	var c checkout.Coupon
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal coupon: %w", err)
	}
	if !c.IsActive {
		return nil, checkout.ErrInvalidCoupon
	}
	return &c, nil
}
