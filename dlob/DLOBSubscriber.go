package dlob

import (
	"context"
	"sync"
	"time"

	"fillergo/dlob/types"
	"fillergo/lib/drift"

	"github.com/go-errors/errors"
	"go.uber.org/zap"
)

const DEFAULT_UPDATE_FREQUENCY = time.Second

// IUserAccountProvider supplies the current set of subscribed user accounts,
// keyed by user account public key.
type IUserAccountProvider interface {
	GetUserAccounts() map[string]*drift.User
}

type DLOBSubscriberConfig struct {
	SlotSource          types.ISlotSource
	UserAccountProvider IUserAccountProvider
	UpdateFrequency     time.Duration
	Logger              *zap.Logger
}

// DLOBSubscriber rebuilds the order book from the user account map on an
// interval. Each rebuild produces a fresh immutable view tagged with the
// slot it was built at; readers always get the latest complete view.
type DLOBSubscriber struct {
	slotSource          types.ISlotSource
	userAccountProvider IUserAccountProvider
	updateFrequency     time.Duration
	logger              *zap.Logger
	dlob                *DLOB
	intervalId          *time.Ticker
	cancel              context.CancelFunc
	mxState             *sync.RWMutex
}

func CreateDLOBSubscriber(config DLOBSubscriberConfig) *DLOBSubscriber {
	updateFrequency := config.UpdateFrequency
	if updateFrequency <= 0 {
		updateFrequency = DEFAULT_UPDATE_FREQUENCY
	}
	return &DLOBSubscriber{
		slotSource:          config.SlotSource,
		userAccountProvider: config.UserAccountProvider,
		updateFrequency:     updateFrequency,
		logger:              config.Logger,
		dlob:                NewDLOB(0),
		mxState:             &sync.RWMutex{},
	}
}

func (p *DLOBSubscriber) Subscribe(ctx context.Context) error {
	if p.intervalId != nil {
		return nil
	}
	if p.slotSource == nil || p.userAccountProvider == nil {
		return errors.New("dlob subscriber missing slot source or user account provider")
	}

	err := p.UpdateDLOB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.intervalId = time.NewTicker(p.updateFrequency)
	go func() {
		for {
			select {
			case <-p.intervalId.C:
				err := p.UpdateDLOB()
				if err != nil && p.logger != nil {
					p.logger.Error("failed to update dlob", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (p *DLOBSubscriber) Unsubscribe() {
	if p.intervalId == nil {
		return
	}
	p.intervalId.Stop()
	p.intervalId = nil
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// UpdateDLOB builds a new view at the current slot and swaps it in.
func (p *DLOBSubscriber) UpdateDLOB() error {
	slot := p.slotSource.GetSlot()
	dlob := NewDLOB(slot)
	dlob.InitFromUserMap(p.userAccountProvider.GetUserAccounts())

	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.dlob = dlob
	return nil
}

// GetDLOB returns the latest complete view. The view's slot may lag the
// requested slot; callers use the view's own slot for auction math.
func (p *DLOBSubscriber) GetDLOB(slot uint64) (types.IDLOB, error) {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	if p.dlob == nil {
		return nil, errors.New("dlob not initialized")
	}
	return p.dlob, nil
}
