package service

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestShippingCostTiers(t *testing.T) {
	cases := []struct {
		state string
		want  int64
	}{
		{"Tamil Nadu", 80},
		{"  tamil nadu  ", 80},
		{"TAMIL NADU", 80},
		{"Kerala", 100},
		{"Karnataka", 100},
		{"Andhra Pradesh", 100},
		{"Telangana", 100},
		{"Puducherry", 100},
		{"Maharashtra", 200},
		{"West Bengal", 200},
		{"", 200},
		{"  ", 200},
	}
	for _, tc := range cases {
		got := ShippingCost(tc.state)
		if !got.Equal(decimal.NewFromInt(tc.want)) {
			t.Fatalf("state %q want %d got %s", tc.state, tc.want, got)
		}
	}
}
