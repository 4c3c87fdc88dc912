package aws

import (
	"context"
	"log"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const metricsNamespace = "CheckoutPipeline"

// Metrics emits order and payment counters to CloudWatch. All emission is
// best effort: a metric failure is logged and swallowed so it can never block
// an order transition.
type Metrics struct {
	client CloudWatchAPI
}

func NewMetrics(client CloudWatchAPI) *Metrics {
	return &Metrics{client: client}
}

// OrderPlaced records a placed order tagged by payment method.
func (m *Metrics) OrderPlaced(ctx context.Context, paymentMethod string) {
	m.put(ctx, "OrdersPlaced", paymentMethod)
}

// PaymentOutcome records a terminal payment outcome ("paid" or "failed").
func (m *Metrics) PaymentOutcome(ctx context.Context, outcome string) {
	m.put(ctx, "PaymentOutcomes", outcome)
}

func (m *Metrics) put(ctx context.Context, name, dimension string) {
	if m == nil || m.client == nil {
		return
	}
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(metricsNamespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: sdkaws.String(name),
				Value:      sdkaws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  sdkaws.Time(time.Now().UTC()),
				Dimensions: []cwtypes.Dimension{
					{Name: sdkaws.String("Kind"), Value: sdkaws.String(dimension)},
				},
			},
		},
	})
	if err != nil {
		log.Printf("[metrics] put %s failed: %v", name, err)
	}
}
