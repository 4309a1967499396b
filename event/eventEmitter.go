package event

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

type Callback func(object ...interface{})

type CallbackItem struct {
	Id        string
	IsOnetime bool
	Callback  Callback
}

type EventEmitter struct {
	callbacks map[string][]CallbackItem
	nextId    atomic.Uint64
	mxState   *sync.RWMutex
}

func CreateEventEmitter() *EventEmitter {
	return &EventEmitter{
		callbacks: make(map[string][]CallbackItem),
		mxState:   new(sync.RWMutex),
	}
}

func (s *EventEmitter) addHandler(eventName string, item CallbackItem) {
	defer s.mxState.Unlock()
	s.mxState.Lock()
	s.callbacks[eventName] = append(s.callbacks[eventName], item)
}

func (s *EventEmitter) On(eventName string, callback Callback) string {
	id := fmt.Sprintf("cb-%d", s.nextId.Add(1))
	s.addHandler(eventName, CallbackItem{Id: id, Callback: callback})
	return id
}

func (s *EventEmitter) Once(eventName string, callback Callback) string {
	id := fmt.Sprintf("cb-%d", s.nextId.Add(1))
	s.addHandler(eventName, CallbackItem{Id: id, Callback: callback, IsOnetime: true})
	return id
}

func (s *EventEmitter) Off(eventName string, callbackIds ...string) {
	defer s.mxState.Unlock()
	s.mxState.Lock()
	if len(callbackIds) == 0 {
		delete(s.callbacks, eventName)
		return
	}
	s.callbacks[eventName] = slices.DeleteFunc(s.callbacks[eventName], func(item CallbackItem) bool {
		return slices.Contains(callbackIds, item.Id)
	})
}

func (s *EventEmitter) Emit(eventName string, object ...interface{}) {
	s.mxState.RLock()
	callbacks := slices.Clone(s.callbacks[eventName])
	s.mxState.RUnlock()

	var removed []string
	for _, item := range callbacks {
		go item.Callback(object...)
		if item.IsOnetime {
			removed = append(removed, item.Id)
		}
	}
	if len(removed) > 0 {
		s.Off(eventName, removed...)
	}
}
