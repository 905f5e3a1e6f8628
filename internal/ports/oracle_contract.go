package ports

import (
	"context"
	"math/big"
)

type ValuationRequestReceipt struct {
	TxHash    string
	RequestID string
	EntityID  string
}

type OracleState struct {
	LastRequestID  string
	LastResponse   string
	LastError      string
	SubscriptionID string
	GasLimit       string
}

type OracleConfig struct {
	SubscriptionID  string
	GasLimit        string
	DonID           string
	RealEstateToken string
}

// OracleContract is the write and read surface of the deployed oracle contract.
type OracleContract interface {
	RequestValuationUpdate(ctx context.Context, entityID string, location string, size string) (ValuationRequestReceipt, error)
	State(ctx context.Context) (OracleState, error)
	Config(ctx context.Context) (OracleConfig, error)
	UpdateSubscriptionID(ctx context.Context, subscriptionID uint64) (txHash string, err error)
	UpdateGasLimit(ctx context.Context, gasLimit uint32) (txHash string, err error)
}

type PropertyRecord struct {
	ID            string
	Name          string
	Location      string
	Description   string
	PricePerShare *big.Int
	TotalShares   *big.Int
	Valuation     *big.Int
	IsActive      bool
}

type PropertyFinancialsRecord struct {
	AccumulatedRentalIncomePerShare *big.Int
	LastRentalUpdate                *big.Int
	IsActive                        bool
}

type PropertyUpdate struct {
	ID            string
	Name          string
	Location      string
	Description   string
	PricePerShare *big.Int
	IsActive      bool
}

// PropertyRegistry is the real-estate token contract surface.
type PropertyRegistry interface {
	GetProperty(ctx context.Context, id string) (PropertyRecord, error)
	GetPropertyFinancials(ctx context.Context, id string) (PropertyFinancialsRecord, error)
	UpdateProperty(ctx context.Context, update PropertyUpdate) (txHash string, err error)
	UpdatePropertyValuation(ctx context.Context, id string, valuation *big.Int) (txHash string, err error)
	UpdateRentalIncome(ctx context.Context, id string, amount *big.Int) (txHash string, err error)
}
