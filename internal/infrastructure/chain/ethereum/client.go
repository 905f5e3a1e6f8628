package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"estateoracle/internal/bootstrap/config"
	"estateoracle/internal/bootstrap/logging"
	"estateoracle/internal/domain/oracle"
	"estateoracle/internal/errs"
)

const (
	defaultReceiptTimeout = 2 * time.Minute
	defaultMaxBlockSpan   = 2000
)

// Client holds one JSON-RPC connection (and an optional websocket one for
// subscriptions) plus the bound oracle and token contracts.
type Client struct {
	cfg config.ChainConfig

	rpc     *ethclient.Client
	ws      *ethclient.Client
	limiter *rate.Limiter

	abis         contractABIs
	oracleAddr   common.Address
	tokenAddr    common.Address
	oracle       *bind.BoundContract
	token        *bind.BoundContract
	key          *ecdsa.PrivateKey
	chainIDMu    sync.Mutex
	chainID      *big.Int
	blockTimes   *blockTimeCache
	now          func() time.Time
	closeOnce    sync.Once
	topicFilters []common.Hash
}

func Dial(ctx context.Context, cfg config.ChainConfig) (*Client, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if !cfg.Enabled() {
		return nil, errs.Wrap(oracle.ErrChainNotConfigured, "dial chain")
	}
	logCtx := logging.WithComponent(ctx, "chain.ethereum")

	abis, err := loadABIs()
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(cfg.OracleAddress) {
		return nil, fmt.Errorf("chain.oracle_address %q is not a hex address", cfg.OracleAddress)
	}
	if cfg.TokenAddress != "" && !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("chain.token_address %q is not a hex address", cfg.TokenAddress)
	}

	var key *ecdsa.PrivateKey
	if raw := strings.TrimSpace(cfg.PrivateKey); raw != "" {
		key, err = crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
		if err != nil {
			return nil, errs.Wrap(err, "parse chain.private_key")
		}
	}

	rpcClient, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, errs.WithStack(errs.Wrap(err, "dial rpc"))
	}

	c := &Client{
		cfg:        cfg,
		rpc:        rpcClient,
		limiter:    newLimiter(cfg.RequestsPerSecond, cfg.Burst),
		abis:       abis,
		oracleAddr: common.HexToAddress(cfg.OracleAddress),
		key:        key,
		blockTimes: newBlockTimeCache(4096),
		now:        time.Now,
	}
	if cfg.ChainID > 0 {
		c.chainID = big.NewInt(cfg.ChainID)
	}
	c.oracle = bind.NewBoundContract(c.oracleAddr, abis.oracle, rpcClient, rpcClient, rpcClient)
	if cfg.TokenAddress != "" {
		c.tokenAddr = common.HexToAddress(cfg.TokenAddress)
		c.token = bind.NewBoundContract(c.tokenAddr, abis.token, rpcClient, rpcClient, rpcClient)
	}
	c.topicFilters = eventTopics(abis.oracle)

	if ws := strings.TrimSpace(cfg.WSURL); ws != "" {
		wsClient, err := ethclient.DialContext(ctx, ws)
		if err != nil {
			rpcClient.Close()
			return nil, errs.WithStack(errs.Wrap(err, "dial websocket rpc"))
		}
		c.ws = wsClient
	}

	logging.Info(logCtx, "chain client ready",
		slog.String("oracle", c.oracleAddr.Hex()),
		slog.Bool("token", c.token != nil),
		slog.Bool("signer", key != nil),
		slog.Bool("subscribe", c.ws != nil),
	)
	return c, nil
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errs.Wrap(err, "rpc rate limit")
	}
	return nil
}

func (c *Client) resolveChainID(ctx context.Context) (*big.Int, error) {
	c.chainIDMu.Lock()
	defer c.chainIDMu.Unlock()
	if c.chainID != nil {
		return c.chainID, nil
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	id, err := c.rpc.ChainID(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "query chain id")
	}
	c.chainID = id
	return id, nil
}

func (c *Client) receiptTimeout() time.Duration {
	if c.cfg.ReceiptTimeout > 0 {
		return c.cfg.ReceiptTimeout
	}
	return defaultReceiptTimeout
}

func (c *Client) maxBlockSpan() uint64 {
	if c.cfg.MaxBlockSpan > 0 {
		return c.cfg.MaxBlockSpan
	}
	return defaultMaxBlockSpan
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		c.rpc.Close()
		if c.ws != nil {
			c.ws.Close()
		}
	})
}

// blockTimeCache remembers header timestamps; a full cache is reset rather than evicted.
type blockTimeCache struct {
	mu    sync.Mutex
	limit int
	times map[uint64]time.Time
}

func newBlockTimeCache(limit int) *blockTimeCache {
	return &blockTimeCache{limit: limit, times: make(map[uint64]time.Time)}
}

func (b *blockTimeCache) get(number uint64) (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	at, ok := b.times[number]
	return at, ok
}

func (b *blockTimeCache) put(number uint64, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.times) >= b.limit {
		b.times = make(map[uint64]time.Time)
	}
	b.times[number] = at
}
