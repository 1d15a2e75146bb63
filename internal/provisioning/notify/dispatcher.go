// Package notify delivers welcome messages after a company has been
// provisioned. Delivery runs on its own goroutine and never reports back to
// the provisioning call.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/tenantprov/internal/provisioning/models"
	"go.uber.org/zap"
)

// Message is a rendered notification ready for a transport.
type Message struct {
	Kind       Kind   `json:"kind"`
	BusinessID string `json:"businessId"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// Transport delivers a single message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// Options tunes the dispatcher.
type Options struct {
	QueueSize   int
	SendTimeout time.Duration
	MaxRetries  uint64
	LoginURL    string
}

func (o *Options) withDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 1000
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 10 * time.Second
	}
}

type Dispatcher struct {
	transport  Transport
	queue      chan Message
	logger     *zap.Logger
	opts       Options
	// mu orders enqueues against Close so nothing lands after the final drain.
	mu         sync.RWMutex
	closeChan  chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	newBackOff func() backoff.BackOff
}

func NewDispatcher(transport Transport, logger *zap.Logger, opts Options) *Dispatcher {
	opts.withDefaults()
	d := &Dispatcher{
		transport: transport,
		queue:     make(chan Message, opts.QueueSize),
		logger:    logger.Named("notify_dispatcher"),
		opts:      opts,
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = time.Minute
			return b
		},
	}

	go d.loop()
	return d
}

// Notify renders the welcome messages for a committed result and queues
// them. It never blocks. The returned warnings name messages that could not
// be queued.
func (d *Dispatcher) Notify(result *models.ProvisionResult, creds models.Credentials) []string {
	if result == nil || result.Company == nil {
		return nil
	}

	var warnings []string
	if result.Admin != nil {
		if !d.queueWelcome(KindAdminWelcome, result.Company, result.Admin, creds.AdminPassword, !result.AdminCreated) {
			warnings = append(warnings, fmt.Sprintf("welcome message for %s was not sent", result.Admin.Email))
		}
	}
	if result.Customer != nil {
		if !d.queueWelcome(KindCustomerWelcome, result.Company, result.Customer, creds.CustomerPassword, false) {
			warnings = append(warnings, fmt.Sprintf("welcome message for %s was not sent", result.Customer.Email))
		}
	}
	return warnings
}

func (d *Dispatcher) queueWelcome(kind Kind, company *models.Company, account *models.Account, password string, existing bool) bool {
	msg, err := renderWelcome(kind, welcomeData{
		FirstName:    account.FirstName,
		CompanyName:  company.Name,
		BusinessID:   company.BusinessID,
		Email:        account.Email,
		Password:     password,
		Role:         string(account.Role),
		TrialEnd:     company.TrialEnd.Format("January 2, 2006"),
		LoginURL:     d.opts.LoginURL,
		ExistingUser: existing,
	})
	if err != nil {
		d.logger.Error("Failed to render notification",
			zap.Error(err),
			zap.String("kind", string(kind)),
			zap.String("business_id", company.BusinessID),
		)
		return false
	}
	return d.enqueue(msg)
}

func (d *Dispatcher) enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	select {
	case <-d.closeChan:
		d.logger.Warn("Notification dispatcher closed, dropping message",
			zap.String("kind", string(msg.Kind)),
			zap.String("business_id", msg.BusinessID),
		)
		return false
	default:
	}

	select {
	case d.queue <- msg:
		return true
	default:
		d.logger.Warn("Notification queue full, dropping message",
			zap.String("kind", string(msg.Kind)),
			zap.String("business_id", msg.BusinessID),
		)
		return false
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for {
		select {
		case msg := <-d.queue:
			d.deliver(msg)
		case <-d.closeChan:
			for {
				select {
				case msg := <-d.queue:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	attempts := 0
	op := func() error {
		attempts++
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
		defer cancel()
		return d.transport.Send(ctx, msg)
	}

	b := backoff.WithMaxRetries(d.newBackOff(), d.opts.MaxRetries)
	if err := backoff.Retry(op, b); err != nil {
		d.logger.Error("Failed to deliver notification",
			zap.Error(err),
			zap.String("kind", string(msg.Kind)),
			zap.String("business_id", msg.BusinessID),
			zap.Int("attempts", attempts),
		)
		return
	}
	d.logger.Debug("Notification delivered",
		zap.String("kind", string(msg.Kind)),
		zap.String("business_id", msg.BusinessID),
	)
}

// Close stops accepting work, drains the queue until ctx expires and closes
// the transport.
func (d *Dispatcher) Close(ctx context.Context) {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		close(d.closeChan)
		d.mu.Unlock()
		select {
		case <-d.done:
		case <-ctx.Done():
			d.logger.Warn("Notification drain interrupted", zap.Int("pending", len(d.queue)))
		}
		if err := d.transport.Close(); err != nil {
			d.logger.Error("Failed to close notification transport", zap.Error(err))
		}
	})
}
