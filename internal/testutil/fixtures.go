package testutil

import (
	"github.com/heliobill/heliobill/internal/domain/pricing"
	"github.com/heliobill/heliobill/internal/types"
	"github.com/shopspring/decimal"
)

// NewAsset builds a snapshot asset with the given capacity in MW
func NewAsset(name string, capacityMW float64) pricing.Asset {
	return pricing.Asset{
		ID:         types.GenerateUUIDWithPrefix("asset"),
		Name:       name,
		CapacityMW: decimal.NewFromFloat(capacityMW),
	}
}

// NewSnapshot builds a capability snapshot from assets, deriving the
// aggregate figures the way a usage source would.
func NewSnapshot(assets ...pricing.Asset) *pricing.CapabilitySnapshot {
	snapshot := &pricing.CapabilitySnapshot{
		SiteCount: len(assets),
		Assets:    assets,
	}
	for _, asset := range assets {
		snapshot.TotalMW = snapshot.TotalMW.Add(asset.CapacityMW)
		if asset.Hybrid {
			snapshot.HybridMW = snapshot.HybridMW.Add(asset.CapacityMW)
		} else {
			snapshot.OnGridMW = snapshot.OnGridMW.Add(asset.CapacityMW)
		}
		if asset.SolcastEnabled {
			snapshot.SolcastSiteCount++
		}
	}
	return snapshot
}

// AggregateSnapshot builds a snapshot with totals only, no per-asset
// breakdown
func AggregateSnapshot(totalMW float64, siteCount int) *pricing.CapabilitySnapshot {
	return &pricing.CapabilitySnapshot{
		TotalMW:   decimal.NewFromFloat(totalMW),
		SiteCount: siteCount,
	}
}
