package internal

import (
	"sjsage522/pricewatch/internal/alert"
	"sjsage522/pricewatch/internal/store"
	"sjsage522/pricewatch/logger"
	"sjsage522/pricewatch/services/cache"
	"sjsage522/pricewatch/services/publisher"
)

// Dependencies holds all service dependencies. Only Store is required;
// the rest stay nil when not configured.
type Dependencies struct {
	Store     store.Store
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Events    *publisher.Events
	Notifiers []alert.Notifier
}

// AlertNotifiers returns every notifier alerts fan out to, including the
// event stream when one is configured.
func (d *Dependencies) AlertNotifiers() []alert.Notifier {
	out := make([]alert.Notifier, 0, len(d.Notifiers)+1)
	if d.Events != nil {
		out = append(out, d.Events)
	}
	return append(out, d.Notifiers...)
}

// Close releases the store and publisher connections
func (d *Dependencies) Close() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			logger.ForPublisher().Warn().Err(err).Msg("Failed to close publisher")
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			logger.ForStore().Warn().Err(err).Msg("Failed to close store")
		}
	}
}
