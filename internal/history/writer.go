package history

import (
	"sync"

	"adfleet/internal/dispatch"
	"adfleet/internal/logging"
)

// Writer persists rounds off the interactive path so a slow disk never
// delays the results display. Writes are dropped, not blocked on, when the
// queue is full.
type Writer struct {
	store  *Store
	ch     chan *dispatch.Round
	stop   chan struct{}
	wg     sync.WaitGroup
	logger *logging.Logger
}

// NewWriter starts the background persistence loop
func NewWriter(store *Store, logger *logging.Logger) *Writer {
	w := &Writer{
		store:  store,
		ch:     make(chan *dispatch.Round, 8),
		stop:   make(chan struct{}),
		logger: logger,
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for {
		select {
		case round := <-w.ch:
			w.save(round)
		case <-w.stop:
			for {
				select {
				case round := <-w.ch:
					w.save(round)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) save(round *dispatch.Round) {
	if err := w.store.SaveRound(round); err != nil && w.logger != nil {
		w.logger.Error("failed to persist round history", "round_id", round.ID, "error", err.Error())
	}
}

// Write queues a completed round for persistence
func (w *Writer) Write(round *dispatch.Round) {
	select {
	case w.ch <- round:
	default:
		if w.logger != nil {
			w.logger.Warn("history queue full, dropping round", "round_id", round.ID)
		}
	}
}

// Close drains the queue and stops the loop
func (w *Writer) Close() {
	close(w.stop)
	w.wg.Wait()
}
