package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"estateoracle/internal/ports"
)

// PropertyRegistry binds the real-estate token contract.
type PropertyRegistry struct {
	client *Client
}

func NewPropertyRegistry(client *Client) *PropertyRegistry {
	return &PropertyRegistry{client: client}
}

func (r *PropertyRegistry) GetProperty(ctx context.Context, id string) (ports.PropertyRecord, error) {
	propertyID, err := parseEntityID(id)
	if err != nil {
		return ports.PropertyRecord{}, err
	}
	out, err := r.client.call(ctx, r.client.token, "getProperty", propertyID)
	if err != nil {
		return ports.PropertyRecord{}, err
	}
	if len(out) != 7 {
		return ports.PropertyRecord{}, fmt.Errorf("getProperty: expected 7 values, got %d", len(out))
	}

	record := ports.PropertyRecord{ID: propertyID.String()}
	var ok [7]bool
	record.Name, ok[0] = out[0].(string)
	record.Location, ok[1] = out[1].(string)
	record.Description, ok[2] = out[2].(string)
	record.PricePerShare, ok[3] = out[3].(*big.Int)
	record.TotalShares, ok[4] = out[4].(*big.Int)
	record.Valuation, ok[5] = out[5].(*big.Int)
	record.IsActive, ok[6] = out[6].(bool)
	for i, good := range ok {
		if !good {
			return ports.PropertyRecord{}, fmt.Errorf("getProperty: unexpected type %T at output %d", out[i], i)
		}
	}
	return record, nil
}

func (r *PropertyRegistry) GetPropertyFinancials(ctx context.Context, id string) (ports.PropertyFinancialsRecord, error) {
	propertyID, err := parseEntityID(id)
	if err != nil {
		return ports.PropertyFinancialsRecord{}, err
	}
	out, err := r.client.call(ctx, r.client.token, "getPropertyFinancials", propertyID)
	if err != nil {
		return ports.PropertyFinancialsRecord{}, err
	}
	if len(out) != 3 {
		return ports.PropertyFinancialsRecord{}, fmt.Errorf("getPropertyFinancials: expected 3 values, got %d", len(out))
	}

	var record ports.PropertyFinancialsRecord
	var ok [3]bool
	record.AccumulatedRentalIncomePerShare, ok[0] = out[0].(*big.Int)
	record.LastRentalUpdate, ok[1] = out[1].(*big.Int)
	record.IsActive, ok[2] = out[2].(bool)
	for i, good := range ok {
		if !good {
			return ports.PropertyFinancialsRecord{}, fmt.Errorf("getPropertyFinancials: unexpected type %T at output %d", out[i], i)
		}
	}
	return record, nil
}

func (r *PropertyRegistry) UpdateProperty(ctx context.Context, update ports.PropertyUpdate) (string, error) {
	propertyID, err := parseEntityID(update.ID)
	if err != nil {
		return "", err
	}
	price := update.PricePerShare
	if price == nil {
		price = new(big.Int)
	}
	_, hash, err := r.client.transact(ctx, r.client.token, "updateProperty",
		propertyID, update.Name, update.Location, update.Description, price, update.IsActive)
	return hashOrEmpty(hash), err
}

func (r *PropertyRegistry) UpdatePropertyValuation(ctx context.Context, id string, valuation *big.Int) (string, error) {
	propertyID, err := parseEntityID(id)
	if err != nil {
		return "", err
	}
	_, hash, err := r.client.transact(ctx, r.client.token, "updatePropertyValuation", propertyID, valuation)
	return hashOrEmpty(hash), err
}

func (r *PropertyRegistry) UpdateRentalIncome(ctx context.Context, id string, amount *big.Int) (string, error) {
	propertyID, err := parseEntityID(id)
	if err != nil {
		return "", err
	}
	_, hash, err := r.client.transact(ctx, r.client.token, "updateRentalIncome", propertyID, amount)
	return hashOrEmpty(hash), err
}
