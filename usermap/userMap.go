package usermap

import (
	"context"
	"sync"
	"time"

	"fillergo/lib/drift"

	"go.uber.org/zap"
)

// IUserFetcher pulls the current open-order state of every subscribed user.
// Implementations wrap whatever transport serves user accounts; the map does
// not care whether that is polling, websocket or geyser.
type IUserFetcher interface {
	FetchUsers(ctx context.Context) (map[string]*drift.User, error)
}

type UserMapConfig struct {
	Fetcher           IUserFetcher
	UpdateFrequencyMs int64
	Logger            *zap.SugaredLogger
}

// UserMap maintains the latest snapshot of user accounts keyed by user
// account public key. The snapshot is replaced wholesale on every refresh,
// so readers never observe a partially updated map.
type UserMap struct {
	fetcher           IUserFetcher
	updateFrequencyMs int64

	users   map[string]*drift.User
	mxState *sync.RWMutex

	cancel context.CancelFunc
	wait   sync.WaitGroup
	logger *zap.SugaredLogger
}

const defaultUpdateFrequencyMs = int64(1_000)

func CreateUserMap(config UserMapConfig) *UserMap {
	updateFrequencyMs := config.UpdateFrequencyMs
	if updateFrequencyMs <= 0 {
		updateFrequencyMs = defaultUpdateFrequencyMs
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &UserMap{
		fetcher:           config.Fetcher,
		updateFrequencyMs: updateFrequencyMs,
		users:             make(map[string]*drift.User),
		mxState:           &sync.RWMutex{},
		logger:            logger,
	}
}

func (p *UserMap) Subscribe(ctx context.Context) error {
	if p.cancel != nil {
		return nil
	}
	if err := p.update(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wait.Add(1)
	go func() {
		defer p.wait.Done()
		ticker := time.NewTicker(time.Duration(p.updateFrequencyMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.update(ctx); err != nil {
					p.logger.Warnw("user map refresh failed", "error", err)
				}
			}
		}
	}()
	return nil
}

func (p *UserMap) Unsubscribe() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.wait.Wait()
}

func (p *UserMap) update(ctx context.Context) error {
	users, err := p.fetcher.FetchUsers(ctx)
	if err != nil {
		return err
	}
	p.mxState.Lock()
	p.users = users
	p.mxState.Unlock()
	return nil
}

// GetUserAccounts returns the current snapshot. Callers must treat it as
// read-only; the next refresh replaces it rather than mutating it.
func (p *UserMap) GetUserAccounts() map[string]*drift.User {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.users
}

func (p *UserMap) Get(userKey string) (*drift.User, bool) {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	user, found := p.users[userKey]
	return user, found
}

func (p *UserMap) Size() int {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return len(p.users)
}
