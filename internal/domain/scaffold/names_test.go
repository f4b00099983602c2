package scaffold

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameTransforms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		pascal string
		camel  string
		kebab  string
		snake  string
	}{
		{in: "demo", pascal: "Demo", camel: "demo", kebab: "demo", snake: "demo"},
		{in: "Demo", pascal: "Demo", camel: "demo", kebab: "demo", snake: "demo"},
		{in: "order-history", pascal: "OrderHistory", camel: "orderHistory", kebab: "order-history", snake: "order_history"},
		{in: "stripe_payments", pascal: "StripePayments", camel: "stripePayments", kebab: "stripe-payments", snake: "stripe_payments"},
		{in: "Order History", pascal: "OrderHistory", camel: "orderHistory", kebab: "order-history", snake: "order_history"},
		{in: "my-API_v2", pascal: "MyAPIV2", camel: "myAPIV2", kebab: "my-api-v2", snake: "my_api_v2"},
		{in: "--a__b  c", pascal: "ABC", camel: "aBC", kebab: "a-b-c", snake: "a_b_c"},
		{in: "", pascal: "", camel: "", kebab: "", snake: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.pascal, PascalCase(tt.in))
			assert.Equal(t, tt.camel, CamelCase(tt.in))
			assert.Equal(t, tt.kebab, KebabCase(tt.in))
			assert.Equal(t, tt.snake, SnakeCase(tt.in))
		})
	}
}

func TestPascalCase_IsPure(t *testing.T) {
	t.Parallel()

	for i := 0; i < 3; i++ {
		assert.Equal(t, "MapView", PascalCase("map-view"))
	}
}
