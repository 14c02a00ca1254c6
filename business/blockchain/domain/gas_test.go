package domain

import (
	"math/big"
	"testing"
)

func TestGasPriceGwei(t *testing.T) {
	tests := []struct {
		name string
		wei  *big.Int
		want float64
	}{
		{"one gwei", big.NewInt(1_000_000_000), 1.0},
		{"thirty gwei", big.NewInt(30_000_000_000), 30.0},
		{"sub gwei", big.NewInt(500_000_000), 0.5},
		{"zero", big.NewInt(0), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewGasPrice(tt.wei)
			if got := p.Gwei(); got != tt.want {
				t.Errorf("Gwei() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewGasPriceCopiesWei(t *testing.T) {
	wei := big.NewInt(1_000_000_000)
	p := NewGasPrice(wei)

	wei.SetInt64(999)
	if p.Wei.Int64() != 1_000_000_000 {
		t.Errorf("GasPrice.Wei mutated through caller's big.Int: %v", p.Wei)
	}
}

func TestNewGasEstimate(t *testing.T) {
	price := NewGasPrice(big.NewInt(20_000_000_000)) // 20 gwei
	est := NewGasEstimate(300_000, price)

	wantTotal := new(big.Int).Mul(big.NewInt(20_000_000_000), big.NewInt(300_000))
	if est.TotalWei.Cmp(wantTotal) != 0 {
		t.Errorf("TotalWei = %v, want %v", est.TotalWei, wantTotal)
	}
	if got := est.TotalGwei(); got != 20.0*300_000 {
		t.Errorf("TotalGwei() = %v", got)
	}
	if got := est.TotalEther(); got != 0.006 {
		t.Errorf("TotalEther() = %v, want 0.006", got)
	}
}
