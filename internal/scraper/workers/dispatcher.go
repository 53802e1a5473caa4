package workers

import (
	"sync"

	"github.com/sirupsen/logrus"

	"pricewatch-utils/pkg/utils"
)

// Dispatcher distributes queued jobs across workers round-robin
type Dispatcher struct {
	jobQueue chan ScrapeJob
	workers  []*Worker
	quit     chan bool
	logger   *logrus.Logger
	mu       sync.RWMutex
	running  bool
}

// NewDispatcher creates a new job dispatcher
func NewDispatcher(jobQueue chan ScrapeJob, workers []*Worker) *Dispatcher {
	return &Dispatcher{
		jobQueue: jobQueue,
		workers:  workers,
		quit:     make(chan bool),
		logger:   utils.GetLogger(),
	}
}

// Start starts the dispatcher
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}

	go d.dispatch()

	d.running = true
	d.logger.WithField("workers", len(d.workers)).Info("Job dispatcher started")
}

// Stop stops the dispatcher
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}

	d.quit <- true
	d.running = false
	d.logger.Info("Job dispatcher stopped")
}

// dispatch assigns queued jobs to workers. Idle workers are probed in
// round-robin order; with every worker busy the job is parked on the next
// one in line, which applies backpressure through the bounded queue.
func (d *Dispatcher) dispatch() {
	workerIndex := 0

	next := func() *Worker {
		worker := d.workers[workerIndex]
		workerIndex = (workerIndex + 1) % len(d.workers)
		return worker
	}

	for {
		select {
		case job := <-d.jobQueue:
			assigned := false
			for i := 0; i < len(d.workers) && !assigned; i++ {
				select {
				case next().JobChan <- job:
					assigned = true
				default:
				}
			}
			if !assigned {
				select {
				case next().JobChan <- job:
				case <-d.quit:
					return
				}
			}

		case <-d.quit:
			return
		}
	}
}

// IsRunning returns true if the dispatcher is running
func (d *Dispatcher) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}
