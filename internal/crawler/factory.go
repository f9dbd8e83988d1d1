package crawler

import (
	"sjsage522/pricewatch/config"
)

// NewLauncher picks the browser engine named by the configuration.
func NewLauncher(cfg *config.Config) Launcher {
	switch cfg.BrowserEngine {
	case config.EngineStatic:
		return StaticLauncher{}
	default:
		return RodLauncher{
			Bin:      cfg.ChromeBin,
			Headless: cfg.BrowserHeadless,
			Proxy:    cfg.BrowserProxy,
		}
	}
}
