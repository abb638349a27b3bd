package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// APIKeyChannel is the NOTIFY channel raised when a row of flock_api_keys
// changes. The payload is the key hash.
const APIKeyChannel = "flock_api_keys"

// Invalidator drops cached authentication state
type Invalidator interface {
	Invalidate(ctx context.Context, keyHash string) error
	InvalidateAll(ctx context.Context) error
}

// KeyInvalidator keeps API key caches consistent across instances.
// It uses PostgreSQL LISTEN/NOTIFY so that a revocation made by any process
// evicts the cached key everywhere.
type KeyInvalidator struct {
	mu       sync.Mutex
	target   Invalidator
	connStr  string
	listener *pq.Listener
	log      zerolog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopped  bool
}

// NewKeyInvalidator creates a new KeyInvalidator.
// connStr is the PostgreSQL connection string used for LISTEN.
func NewKeyInvalidator(target Invalidator, connStr string, log zerolog.Logger) *KeyInvalidator {
	return &KeyInvalidator{
		target:  target,
		connStr: connStr,
		log:     log,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins listening for key changes
func (k *KeyInvalidator) Start(ctx context.Context) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			// The listener reconnects by itself; entries still expire by TTL meanwhile
			k.log.Warn().Err(err).Msg("api key listener problem")
		}
	}

	k.listener = pq.NewListener(k.connStr, 10*time.Second, time.Minute, reportProblem)
	if err := k.listener.Listen(APIKeyChannel); err != nil {
		k.listener.Close()
		return fmt.Errorf("failed to listen on %s: %w", APIKeyChannel, err)
	}

	go k.run(k.listener.Notify)
	return nil
}

// Stop stops listening and releases the connection
func (k *KeyInvalidator) Stop() error {
	k.mu.Lock()
	if k.stopped {
		k.mu.Unlock()
		return nil
	}
	k.stopped = true
	close(k.stopCh)
	k.mu.Unlock()

	if k.listener == nil {
		return nil
	}
	<-k.doneCh
	return k.listener.Close()
}

func (k *KeyInvalidator) run(notify <-chan *pq.Notification) {
	defer close(k.doneCh)

	for {
		select {
		case <-k.stopCh:
			return
		case n := <-notify:
			k.handle(n)
		case <-time.After(90 * time.Second):
			// Periodic ping to keep connection alive
			go func() {
				if err := k.listener.Ping(); err != nil {
					k.log.Warn().Err(err).Msg("api key listener ping failed")
				}
			}()
		}
	}
}

// handle applies one notification. A nil notification means the connection
// was re-established and events may have been missed, so everything is dropped.
func (k *KeyInvalidator) handle(n *pq.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if n == nil {
		if err := k.target.InvalidateAll(ctx); err != nil {
			k.log.Error().Err(err).Msg("failed to clear api key cache after reconnect")
		}
		return
	}

	if n.Extra == "" {
		return
	}
	if err := k.target.Invalidate(ctx, n.Extra); err != nil {
		k.log.Error().Err(err).Msg("failed to invalidate cached api key")
		return
	}
	k.log.Debug().Str("channel", n.Channel).Msg("invalidated cached api key")
}
