package ethereum

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"estateoracle/internal/bootstrap/logging"
	"estateoracle/internal/domain/oracle"
	"estateoracle/internal/errs"
	"estateoracle/internal/ports"
)

var (
	errSubscribeUnsupported = errors.New("subscriptions need chain.ws_url")
	errSubscriptionClosed   = errors.New("oracle log subscription closed")
)

// EventSource reads oracle logs through eth_getLogs and eth_subscribe.
type EventSource struct {
	client *Client
}

func NewEventSource(client *Client) *EventSource {
	return &EventSource{client: client}
}

func (s *EventSource) query(from, to *big.Int) goethereum.FilterQuery {
	return goethereum.FilterQuery{
		FromBlock: from,
		ToBlock:   to,
		Addresses: []common.Address{s.client.oracleAddr},
		Topics:    [][]common.Hash{s.client.topicFilters},
	}
}

// Poll scans at most limit blocks starting at since. The returned marker is the
// next block to scan. A zero marker starts at chain.start_block or, when that is
// unset, chain.lookback blocks behind the head.
func (s *EventSource) Poll(ctx context.Context, since ports.Marker, limit int) ([]oracle.Event, ports.Marker, error) {
	c := s.client
	logCtx := logging.WithComponent(ctx, "chain.ethereum.poll")

	if err := c.wait(ctx); err != nil {
		return nil, since, err
	}
	head, err := c.rpc.BlockNumber(ctx)
	if err != nil {
		return nil, since, errs.WithStack(errs.Wrap(err, "query head block"))
	}
	if head < c.cfg.Confirmations {
		return nil, since, nil
	}
	safeHead := head - c.cfg.Confirmations

	from := uint64(since)
	if from == 0 {
		from = c.cfg.StartBlock
		if from == 0 && safeHead > c.cfg.Lookback {
			from = safeHead - c.cfg.Lookback
		}
	}
	if from > safeHead {
		return nil, since, nil
	}

	span := c.maxBlockSpan()
	if limit > 0 && uint64(limit) < span {
		span = uint64(limit)
	}
	to := safeHead
	if to-from+1 > span {
		to = from + span - 1
	}

	if err := c.wait(ctx); err != nil {
		return nil, since, err
	}
	logs, err := c.rpc.FilterLogs(ctx, s.query(new(big.Int).SetUint64(from), new(big.Int).SetUint64(to)))
	if err != nil {
		return nil, since, errs.WithStack(errs.Wrapf(err, "filter logs %d-%d", from, to))
	}

	events := s.decodeAll(logCtx, logs)
	logging.Debug(logCtx, "oracle logs scanned",
		slog.Uint64("from_block", from),
		slog.Uint64("to_block", to),
		slog.Int("logs", len(logs)),
		slog.Int("events", len(events)),
	)
	return events, ports.Marker(to + 1), nil
}

// Subscribe pushes each new oracle log to handler until Unsubscribe is called or
// ctx ends. A dropped feed is reported once on Err. Handler errors are logged.
func (s *EventSource) Subscribe(ctx context.Context, handler ports.EventHandler) (ports.Subscription, error) {
	c := s.client
	if c.ws == nil {
		return nil, errSubscribeUnsupported
	}
	if handler == nil {
		return nil, errors.New("event handler is required")
	}
	logCtx := logging.WithComponent(ctx, "chain.ethereum.subscribe")

	logs := make(chan types.Log, 64)
	sub, err := c.ws.SubscribeFilterLogs(ctx, s.query(nil, nil), logs)
	if err != nil {
		return nil, errs.WithStack(errs.Wrap(err, "subscribe oracle logs"))
	}

	subCtx, cancel := context.WithCancel(ctx)
	feed := &logSubscription{cancel: cancel, done: make(chan struct{}), err: make(chan error, 1)}
	go func() {
		defer close(feed.done)
		defer sub.Unsubscribe()
		for {
			select {
			case <-subCtx.Done():
				return
			case err := <-sub.Err():
				if err == nil {
					err = errSubscriptionClosed
				}
				logging.Error(logCtx, "oracle log subscription dropped", slog.Any("err", errs.Loggable(err)))
				feed.err <- err
				return
			case lg := <-logs:
				events := s.decodeAll(subCtx, []types.Log{lg})
				if len(events) == 0 {
					continue
				}
				if err := handler(subCtx, events); err != nil {
					logging.Error(logCtx, "oracle event handler failed",
						slog.String("event_key", events[0].Key),
						slog.Any("err", errs.Loggable(err)),
					)
				}
			}
		}
	}()

	logging.Info(logCtx, "subscribed to oracle logs", slog.String("oracle", c.oracleAddr.Hex()))
	return feed, nil
}

type logSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    chan error
}

func (f *logSubscription) Unsubscribe() {
	f.cancel()
	<-f.done
}

func (f *logSubscription) Err() <-chan error {
	return f.err
}

func (s *EventSource) decodeAll(ctx context.Context, logs []types.Log) []oracle.Event {
	events := make([]oracle.Event, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			logging.Warn(ctx, "ignoring removed oracle log",
				slog.String("tx_hash", lg.TxHash.Hex()),
				slog.Uint64("block", lg.BlockNumber),
			)
			continue
		}
		event, err := decodeLog(s.client.abis.oracle, lg, s.observedAt(ctx, lg.BlockNumber))
		if err != nil {
			logging.Debug(ctx, "skipping undecodable log",
				slog.String("tx_hash", lg.TxHash.Hex()),
				slog.Any("err", errs.Loggable(err)),
			)
			continue
		}
		events = append(events, event)
	}
	return events
}

func (s *EventSource) observedAt(ctx context.Context, number uint64) time.Time {
	c := s.client
	if !c.cfg.UseBlockTime {
		return c.now().UTC()
	}
	if at, ok := c.blockTimes.get(number); ok {
		return at
	}
	if err := c.wait(ctx); err != nil {
		return c.now().UTC()
	}
	header, err := c.rpc.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil || header == nil {
		logging.Warn(ctx, "block header unavailable, using wall clock",
			slog.Uint64("block", number),
			slog.Any("err", errs.Loggable(err)),
		)
		return c.now().UTC()
	}
	at := time.Unix(int64(header.Time), 0).UTC()
	c.blockTimes.put(number, at)
	return at
}
