package oracle

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	domainoracle "estateoracle/internal/domain/oracle"
	"estateoracle/internal/ports"
)

const (
	TriggerManual = "manual"
	TriggerAuto   = "auto"

	defaultEventBatch   = 2000
	defaultPollInterval = 30 * time.Second
)

var (
	ErrLocationRequired = errors.New("property location is required")
	ErrInvalidGasLimit  = errors.New("gas limit must be positive")
)

type Settings struct {
	StalenessWindow time.Duration
	InFlightTimeout time.Duration
	PollInterval    time.Duration
	EventBatch      int
	AutoUpdate      bool
	WatchlistFile   string
}

func (s Settings) withDefaults() Settings {
	if s.StalenessWindow <= 0 {
		s.StalenessWindow = domainoracle.DefaultStalenessWindow
	}
	if s.InFlightTimeout <= 0 {
		s.InFlightTimeout = domainoracle.DefaultInFlightTimeout
	}
	if s.PollInterval <= 0 {
		s.PollInterval = defaultPollInterval
	}
	if s.EventBatch <= 0 {
		s.EventBatch = defaultEventBatch
	}
	return s
}

// Deps are the ports the service drives. Notifier and Metrics may be nil.
type Deps struct {
	Events   ports.OracleEventRepository
	UoW      ports.UnitOfWork
	Cache    ports.Cache
	Source   ports.EventSource
	Contract ports.OracleContract
	Registry ports.PropertyRegistry
	Notifier ports.Notifier
	Metrics  ports.OracleMetrics
}

type Service struct {
	events   ports.OracleEventRepository
	uow      ports.UnitOfWork
	cache    ports.Cache
	source   ports.EventSource
	contract ports.OracleContract
	registry ports.PropertyRegistry
	notifier ports.Notifier
	metrics  ports.OracleMetrics

	now   func() time.Time
	newID func() string

	settingsMu sync.RWMutex
	settings   Settings

	// ingestMu serialises ingestion between the poll path and pushed deliveries.
	ingestMu sync.Mutex
}

func NewService(deps Deps, settings Settings) *Service {
	return &Service{
		events:   deps.Events,
		uow:      deps.UoW,
		cache:    deps.Cache,
		source:   deps.Source,
		contract: deps.Contract,
		registry: deps.Registry,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		now:      time.Now,
		newID:    uuid.NewString,
		settings: settings.withDefaults(),
	}
}

func (s *Service) ApplySettings(settings Settings) {
	s.settingsMu.Lock()
	s.settings = settings.withDefaults()
	s.settingsMu.Unlock()
}

func (s *Service) Settings() Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

func (s *Service) requireStore() error {
	if s.events == nil {
		return errors.New("oracle event repository is required")
	}
	if s.cache == nil {
		return errors.New("cache is required")
	}
	return nil
}
