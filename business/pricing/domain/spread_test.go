package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateSpread(t *testing.T) {
	tests := []struct {
		name          string
		amountIn      string
		amountOut     string
		wantAbsolute  string
		wantPercent   string
		wantDirection SpreadDirection
	}{
		{
			name:          "profitable round trip",
			amountIn:      "10000",
			amountOut:     "10100",
			wantAbsolute:  "100",
			wantPercent:   "1",
			wantDirection: SpreadProfitable,
		},
		{
			name:          "losing round trip",
			amountIn:      "10000",
			amountOut:     "9950",
			wantAbsolute:  "-50",
			wantPercent:   "-0.5",
			wantDirection: SpreadLosing,
		},
		{
			name:          "flat",
			amountIn:      "10000",
			amountOut:     "10000",
			wantAbsolute:  "0",
			wantPercent:   "0",
			wantDirection: SpreadFlat,
		},
		{
			name:          "half percent edge",
			amountIn:      "20000",
			amountOut:     "20100",
			wantAbsolute:  "100",
			wantPercent:   "0.5",
			wantDirection: SpreadProfitable,
		},
		{
			name:          "fractional amounts",
			amountIn:      "1.5",
			amountOut:     "1.515",
			wantAbsolute:  "0.015",
			wantPercent:   "1",
			wantDirection: SpreadProfitable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := decimal.RequireFromString(tt.amountIn)
			out := decimal.RequireFromString(tt.amountOut)

			s := CalculateSpread(in, out)

			if !s.Absolute.Equal(decimal.RequireFromString(tt.wantAbsolute)) {
				t.Errorf("Absolute = %s, want %s", s.Absolute, tt.wantAbsolute)
			}
			if !s.Percent.Equal(decimal.RequireFromString(tt.wantPercent)) {
				t.Errorf("Percent = %s, want %s", s.Percent, tt.wantPercent)
			}
			if s.Direction != tt.wantDirection {
				t.Errorf("Direction = %s, want %s", s.Direction, tt.wantDirection)
			}
		})
	}
}

func TestCalculateSpreadZeroAmountIn(t *testing.T) {
	s := CalculateSpread(decimal.Zero, decimal.RequireFromString("100"))

	if !s.Percent.IsZero() {
		t.Errorf("Percent = %s, want 0 for zero amount in", s.Percent)
	}
	if s.Direction != SpreadProfitable {
		t.Errorf("Direction = %s, want %s", s.Direction, SpreadProfitable)
	}
}

func TestSpreadBasisPoints(t *testing.T) {
	s := CalculateSpread(
		decimal.RequireFromString("10000"),
		decimal.RequireFromString("10075"),
	)

	if !s.BasisPoints().Equal(decimal.RequireFromString("75")) {
		t.Errorf("BasisPoints() = %s, want 75", s.BasisPoints())
	}
}
