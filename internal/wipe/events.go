package wipe

import (
	"sync"
)

// EventSink получает события прогресса и журнала в порядке их появления
type EventSink interface {
	OnProgress(processed, total int)
	OnLog(message string)
}

// EventKind тип события
type EventKind int

const (
	EventLog EventKind = iota
	EventProgress
)

// Event событие для приемника
type Event struct {
	Kind     EventKind
	Message  string
	Progress ProgressInfo
}

// Dispatcher доставляет события приемнику из одной горутины в порядке FIFO.
// Emit никогда не блокирует рабочую горутину: очередь не ограничена.
type Dispatcher struct {
	sink   EventSink
	mu     sync.Mutex
	queue  []Event
	closed bool
	notify chan struct{}
	done   chan struct{}
}

// NewDispatcher запускает горутину доставки
func NewDispatcher(sink EventSink) *Dispatcher {
	d := &Dispatcher{
		sink:   sink,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go d.loop()
	return d
}

// Emit ставит событие в очередь; после Close события отбрасываются
func (d *Dispatcher) Emit(e Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, e)
	d.mu.Unlock()
	d.wake()
}

// Log короткая форма Emit для строки журнала
func (d *Dispatcher) Log(message string) {
	d.Emit(Event{Kind: EventLog, Message: message})
}

// Progress короткая форма Emit для прогресса
func (d *Dispatcher) Progress(processed, total int) {
	d.Emit(Event{Kind: EventProgress, Progress: ProgressInfo{Processed: processed, Total: total}})
}

// Close доставляет оставшиеся события и останавливает горутину
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wake()
	<-d.done
}

func (d *Dispatcher) wake() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		closed := d.closed
		d.mu.Unlock()

		for _, e := range batch {
			d.deliver(e)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-d.notify
	}
}

func (d *Dispatcher) deliver(e Event) {
	if d.sink == nil {
		return
	}
	switch e.Kind {
	case EventProgress:
		d.sink.OnProgress(e.Progress.Processed, e.Progress.Total)
	default:
		d.sink.OnLog(e.Message)
	}
}
