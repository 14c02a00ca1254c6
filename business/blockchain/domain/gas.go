// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"
	"time"
)

// GasPrice represents a gas price observation.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{
		Wei:       new(big.Int).Set(wei),
		Timestamp: time.Now(),
	}
}

// Gwei returns the price in gwei.
func (p *GasPrice) Gwei() float64 {
	gwei := new(big.Float).SetInt(p.Wei)
	gwei.Quo(gwei, big.NewFloat(1e9))
	f, _ := gwei.Float64()
	return f
}

// GasEstimate represents estimated gas costs for an operation.
type GasEstimate struct {
	GasLimit uint64
	GasPrice *GasPrice
	TotalWei *big.Int
}

// NewGasEstimate computes the total gas cost for a limit at a price.
func NewGasEstimate(gasLimit uint64, gasPrice *GasPrice) *GasEstimate {
	totalWei := new(big.Int).Mul(gasPrice.Wei, new(big.Int).SetUint64(gasLimit))

	return &GasEstimate{
		GasLimit: gasLimit,
		GasPrice: gasPrice,
		TotalWei: totalWei,
	}
}

// TotalGwei returns the total cost in gwei.
func (e *GasEstimate) TotalGwei() float64 {
	return e.GasPrice.Gwei() * float64(e.GasLimit)
}

// TotalEther returns the total cost in ether.
func (e *GasEstimate) TotalEther() float64 {
	eth := new(big.Float).SetInt(e.TotalWei)
	eth.Quo(eth, big.NewFloat(1e18))
	f, _ := eth.Float64()
	return f
}
