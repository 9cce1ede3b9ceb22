package queue

import (
	"context"
	"time"

	"github.com/omnikdao/governance/pkg/governor"
)

type Service struct {
	queue      chan governor.Message
	quit       chan bool
	maxRetries int

	ctx context.Context
	wm  governor.WebhookMessager
}

type Processor interface {
	Process(governor.Message) error
}

func NewService(bufferSize, maxRetries int, ctx context.Context, wm governor.WebhookMessager) *Service {
	return &Service{
		queue:      make(chan governor.Message, bufferSize),
		quit:       make(chan bool),
		maxRetries: maxRetries,
		ctx:        ctx,
		wm:         wm,
	}
}

// Enqueue waits for room in the queue, the message is dropped once the service context is done
func (s *Service) Enqueue(message governor.Message) {
	select {
	case s.queue <- message:
	case <-s.ctx.Done():
	}
}

// TryEnqueue adds a message without waiting and reports whether there was room for it
func (s *Service) TryEnqueue(message governor.Message) bool {
	select {
	case s.queue <- message:
		return true
	default:
		return false
	}
}

func (s *Service) Close() {
	s.quit <- true
}

func (s *Service) Start(p Processor) error {
	for {
		select {
		case message := <-s.queue:
			// process an item in the queue
			// it is up to the processor to handle the data type
			err := p.Process(message)
			if err != nil {
				// if there is an error, requeue the message
				if message.RetryCount < s.maxRetries {
					message.RetryCount++
					if len(s.queue) == 0 {
						// if the queue was empty, we need to wait a bit
						// to avoid a busy loop
						extraWait := time.Duration(message.RetryCount) * 100 * time.Millisecond
						time.Sleep(extraWait)
					}
					s.requeue(message)
					continue
				}

				if s.wm != nil {
					s.wm.NotifyError(s.ctx, err)
				}
			}
		case <-s.quit:
			// quit the service
			return nil
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}
}

// requeue puts a message back without blocking the consumer on a full buffer
func (s *Service) requeue(message governor.Message) {
	if !s.TryEnqueue(message) {
		go s.Enqueue(message)
	}
}
