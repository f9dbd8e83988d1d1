package crawler

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"sjsage522/pricewatch/logger"
	"sjsage522/pricewatch/pkg/errors"
)

// RodLauncher starts a stealth headless Chromium through go-rod.
type RodLauncher struct {
	Bin      string
	Headless bool
	Proxy    string
}

// Launch starts Chromium and connects to it over CDP
func (l RodLauncher) Launch(ctx context.Context) (Browser, error) {
	ln := launcher.New().
		Context(ctx).
		Headless(l.Headless).
		NoSandbox(true).
		Leakless(false).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu")
	if l.Bin != "" {
		ln = ln.Bin(l.Bin)
	}
	if l.Proxy != "" {
		ln = ln.Proxy(l.Proxy)
	}

	controlURL, err := ln.Launch()
	if err != nil {
		return nil, errors.NewOrchestration("failed to launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		ln.Kill()
		return nil, errors.NewOrchestration("failed to connect to browser", err)
	}

	logger.ForFleet().Debug().Str("control_url", controlURL).Msg("Browser launched")
	return &rodBrowser{browser: browser, launcher: ln}, nil
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// blockedResources are never downloaded; prices live in the document
var blockedResources = map[proto.NetworkResourceType]bool{
	proto.NetworkResourceTypeImage:      true,
	proto.NetworkResourceTypeStylesheet: true,
	proto.NetworkResourceTypeFont:       true,
	proto.NetworkResourceTypeMedia:      true,
}

func (b *rodBrowser) NewPage(ctx context.Context, id Identity) (Page, error) {
	page, err := stealth.Page(b.browser)
	if err != nil {
		return nil, err
	}

	fail := func(err error) (Page, error) {
		page.Close()
		return nil, err
	}

	pg := page.Context(ctx)
	if err := pg.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      id.UserAgent,
		AcceptLanguage: id.Headers["Accept-Language"],
	}); err != nil {
		return fail(err)
	}
	if err := pg.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             id.Width,
		Height:            id.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fail(err)
	}

	headers := make([]string, 0, 2*len(id.Headers))
	for k, v := range id.Headers {
		headers = append(headers, k, v)
	}
	if _, err := pg.SetExtraHeaders(headers); err != nil {
		return fail(err)
	}

	router := page.HijackRequests()
	err = router.Add("*", "", func(h *rod.Hijack) {
		if blockedResources[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return fail(err)
	}
	go router.Run()

	return &rodPage{page: page, router: router}, nil
}

func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Cleanup()
	return err
}

type rodPage struct {
	page   *rod.Page
	router *rod.HijackRouter
}

func (p *rodPage) Navigate(ctx context.Context, url string) (int, error) {
	pg := p.page.Context(ctx)

	status := 0
	waitDocument := pg.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return true
	})
	waitDOM := pg.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)

	if err := pg.Navigate(url); err != nil {
		return 0, err
	}
	waitDocument()
	waitDOM()

	if err := ctx.Err(); err != nil {
		return status, err
	}
	return status, nil
}

func (p *rodPage) WaitVisible(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

func (p *rodPage) ScrollBy(ctx context.Context, dy int) error {
	_, err := p.page.Context(ctx).Eval(`(dy) => window.scrollBy(0, dy)`, dy)
	return err
}

func (p *rodPage) Text(ctx context.Context, selector string) (string, error) {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (p *rodPage) Close() error {
	_ = p.router.Stop()
	return p.page.Close()
}
