package ethereum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"estateoracle/internal/bootstrap/logging"
	"estateoracle/internal/domain/oracle"
	"estateoracle/internal/errs"
)

var errNoSigner = errors.New("chain.private_key is not configured")

// Send failures and reverts wrap oracle.ErrWriteRejected. A receipt that never
// arrives wraps oracle.ErrWriteUnconfirmed and still reports the tx hash.
func (c *Client) transact(ctx context.Context, contract *bind.BoundContract, method string, params ...any) (*types.Receipt, common.Hash, error) {
	logCtx := logging.WithAttrs(logging.WithComponent(ctx, "chain.ethereum.transact"), slog.String("method", method))

	if contract == nil {
		return nil, common.Hash{}, fmt.Errorf("%w: %s: contract address not configured", oracle.ErrChainNotConfigured, method)
	}
	if c.key == nil {
		return nil, common.Hash{}, fmt.Errorf("%w: %s: %v", oracle.ErrWriteRejected, method, errNoSigner)
	}
	chainID, err := c.resolveChainID(ctx)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("%w: %s: %v", oracle.ErrWriteRejected, method, err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, chainID)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("%w: %s: build transactor: %v", oracle.ErrWriteRejected, method, err)
	}
	opts.Context = ctx

	if err := c.wait(ctx); err != nil {
		return nil, common.Hash{}, fmt.Errorf("%w: %s: %v", oracle.ErrWriteRejected, method, err)
	}
	tx, err := contract.Transact(opts, method, params...)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("%w: %s: %v", oracle.ErrWriteRejected, method, err)
	}
	hash := tx.Hash()
	logging.Info(logCtx, "transaction sent", slog.String("tx_hash", hash.Hex()))

	waitCtx, cancel := context.WithTimeout(ctx, c.receiptTimeout())
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.rpc, tx)
	if err != nil {
		return nil, hash, errs.WithStack(fmt.Errorf("%w: %s tx %s: %v", oracle.ErrWriteUnconfirmed, method, hash.Hex(), err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, hash, fmt.Errorf("%w: %s tx %s reverted in block %s", oracle.ErrWriteRejected, method, hash.Hex(), receipt.BlockNumber)
	}

	logging.Info(logCtx, "transaction mined",
		slog.String("tx_hash", hash.Hex()),
		slog.Uint64("gas_used", receipt.GasUsed),
	)
	return receipt, hash, nil
}

func (c *Client) call(ctx context.Context, contract *bind.BoundContract, method string, params ...any) ([]any, error) {
	if contract == nil {
		return nil, fmt.Errorf("%w: %s: contract address not configured", oracle.ErrChainNotConfigured, method)
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, errs.Wrapf(err, "call %s", method)
	}
	return out, nil
}

func callValue[T any](ctx context.Context, c *Client, contract *bind.BoundContract, method string, params ...any) (T, error) {
	var zero T
	out, err := c.call(ctx, contract, method, params...)
	if err != nil {
		return zero, err
	}
	if len(out) == 0 {
		return zero, fmt.Errorf("call %s: empty result", method)
	}
	value, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("call %s: unexpected result type %T", method, out[0])
	}
	return value, nil
}
