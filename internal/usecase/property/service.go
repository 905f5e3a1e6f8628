package property

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"estateoracle/internal/bootstrap/logging"
	domainoracle "estateoracle/internal/domain/oracle"
	domainproperty "estateoracle/internal/domain/property"
	"estateoracle/internal/errs"
	"estateoracle/internal/ports"
)

type Service struct {
	registry ports.PropertyRegistry
}

func NewService(registry ports.PropertyRegistry) *Service {
	return &Service{registry: registry}
}

type UpdatePropertyInput struct {
	ID            string
	Name          string
	Location      string
	Description   string
	PricePerShare string
	IsActive      bool
}

func (s *Service) GetProperty(ctx context.Context, id string) (domainproperty.Property, error) {
	entity, err := s.prepare(ctx, id)
	if err != nil {
		return domainproperty.Property{}, err
	}
	record, err := s.registry.GetProperty(ctx, entity)
	if err != nil {
		return domainproperty.Property{}, errs.Wrapf(err, "read property %s", entity)
	}
	return domainproperty.Property{
		ID:            entity,
		Name:          record.Name,
		Location:      record.Location,
		Description:   record.Description,
		PricePerShare: domainproperty.FormatEther(record.PricePerShare),
		TotalShares:   bigString(record.TotalShares),
		Valuation:     bigString(record.Valuation),
		IsActive:      record.IsActive,
	}, nil
}

func (s *Service) GetFinancials(ctx context.Context, id string) (domainproperty.Financials, error) {
	entity, err := s.prepare(ctx, id)
	if err != nil {
		return domainproperty.Financials{}, err
	}
	record, err := s.registry.GetPropertyFinancials(ctx, entity)
	if err != nil {
		return domainproperty.Financials{}, errs.Wrapf(err, "read financials of property %s", entity)
	}

	financials := domainproperty.Financials{
		AccumulatedRentalIncomePerShare: domainproperty.FormatEther(record.AccumulatedRentalIncomePerShare),
		IsActive:                        record.IsActive,
	}
	if record.LastRentalUpdate != nil && record.LastRentalUpdate.Sign() > 0 && record.LastRentalUpdate.IsInt64() {
		financials.LastRentalUpdate = time.Unix(record.LastRentalUpdate.Int64(), 0).UTC()
	}
	return financials, nil
}

func (s *Service) UpdateProperty(ctx context.Context, input UpdatePropertyInput) (string, error) {
	entity, err := s.prepare(ctx, input.ID)
	if err != nil {
		return "", err
	}

	var missing []string
	name := strings.TrimSpace(input.Name)
	location := strings.TrimSpace(input.Location)
	if name == "" {
		missing = append(missing, "name")
	}
	if location == "" {
		missing = append(missing, "location")
	}
	if strings.TrimSpace(input.PricePerShare) == "" {
		missing = append(missing, "price per share")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s required", domainproperty.ErrInvalidInput, strings.Join(missing, ", "))
	}

	price, err := domainproperty.ToWei(input.PricePerShare)
	if err != nil {
		return "", fmt.Errorf("%w: price per share: %w", domainproperty.ErrInvalidInput, err)
	}

	txHash, err := s.registry.UpdateProperty(ctx, ports.PropertyUpdate{
		ID:            entity,
		Name:          name,
		Location:      location,
		Description:   strings.TrimSpace(input.Description),
		PricePerShare: price,
		IsActive:      input.IsActive,
	})
	if err != nil {
		return txHash, errs.Wrapf(err, "update property %s", entity)
	}
	s.logWrite(ctx, "property updated", entity, txHash)
	return txHash, nil
}

// UpdateValuation stores a new valuation given in whole currency units.
func (s *Service) UpdateValuation(ctx context.Context, id string, valuation string) (string, error) {
	entity, amount, err := s.prepareAmount(ctx, id, valuation, "valuation")
	if err != nil {
		return "", err
	}
	txHash, err := s.registry.UpdatePropertyValuation(ctx, entity, amount)
	if err != nil {
		return txHash, errs.Wrapf(err, "update valuation of property %s", entity)
	}
	s.logWrite(ctx, "property valuation updated", entity, txHash)
	return txHash, nil
}

func (s *Service) UpdateRentalIncome(ctx context.Context, id string, income string) (string, error) {
	entity, amount, err := s.prepareAmount(ctx, id, income, "rental income")
	if err != nil {
		return "", err
	}
	txHash, err := s.registry.UpdateRentalIncome(ctx, entity, amount)
	if err != nil {
		return txHash, errs.Wrapf(err, "update rental income of property %s", entity)
	}
	s.logWrite(ctx, "property rental income updated", entity, txHash)
	return txHash, nil
}

func (s *Service) prepare(ctx context.Context, id string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.registry == nil {
		return "", domainoracle.ErrChainNotConfigured
	}
	entity, err := domainoracle.NormalizeEntityID(id)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domainproperty.ErrInvalidInput, err)
	}
	return entity, nil
}

func (s *Service) prepareAmount(ctx context.Context, id string, raw string, field string) (string, *big.Int, error) {
	entity, err := s.prepare(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return "", nil, fmt.Errorf("%w: %s required", domainproperty.ErrInvalidInput, field)
	}
	amount, err := domainproperty.ToWei(raw)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %w", domainproperty.ErrInvalidInput, field, err)
	}
	return entity, amount, nil
}

func (s *Service) logWrite(ctx context.Context, msg string, entity string, txHash string) {
	logging.Info(logging.WithComponent(ctx, "usecase.property"), msg,
		slog.String("entity_id", entity),
		slog.String("tx_hash", txHash),
	)
}

func bigString(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}
