package common

type KeyedValue[T any, K any] struct {
	Key   K
	Value T
}

type YieldFn[T any, K any] func(value T, key K) (stopIterating bool)

type MapperFn[T any, K any] func(yield YieldFn[T, K])

// Generator lazily yields values from a mapper function. Iteration is
// single-consumer; Cancel stops the producing goroutine early.
type Generator[T any, K any] struct {
	mapper  MapperFn[T, K]
	values  chan KeyedValue[T, K]
	stop    chan struct{}
	started bool
}

func NewGenerator[T any, K any](mapper MapperFn[T, K]) *Generator[T, K] {
	return &Generator[T, K]{mapper: mapper}
}

func (p *Generator[T, K]) start() {
	if p.started {
		return
	}
	p.started = true
	p.values = make(chan KeyedValue[T, K], 1)
	p.stop = make(chan struct{})
	go func() {
		defer close(p.values)
		p.mapper(func(value T, key K) bool {
			select {
			case <-p.stop:
				return true
			case p.values <- KeyedValue[T, K]{Key: key, Value: value}:
				return false
			}
		})
	}()
}

func (p *Generator[T, K]) Next() (T, K, bool) {
	p.start()
	kv, ok := <-p.values
	return kv.Value, kv.Key, !ok
}

func (p *Generator[T, K]) Cancel() {
	if p.started {
		select {
		case <-p.stop:
		default:
			close(p.stop)
		}
	}
}

// Each iterates until the mapper is exhausted or f returns true.
func (p *Generator[T, K]) Each(f func(value T, key K) bool) {
	for {
		value, key, done := p.Next()
		if done {
			return
		}
		if f(value, key) {
			p.Cancel()
			return
		}
	}
}
