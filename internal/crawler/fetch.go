package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/pricewatch/helpers"
)

// StaticLauncher serves pages over plain HTTP and reads them with goquery.
// It cannot run scripts, so it suits competitors that render prices
// server-side and hosts without Chromium.
type StaticLauncher struct{}

// Launch returns a Browser backed by plain HTTP requests
func (StaticLauncher) Launch(context.Context) (Browser, error) {
	return staticBrowser{}, nil
}

type staticBrowser struct{}

func (staticBrowser) NewPage(_ context.Context, id Identity) (Page, error) {
	return &staticPage{id: id}, nil
}

func (staticBrowser) Close() error { return nil }

type staticPage struct {
	id  Identity
	doc *goquery.Document
}

func (p *staticPage) Navigate(ctx context.Context, url string) (int, error) {
	headers := make(map[string]string, len(p.id.Headers)+1)
	for k, v := range p.id.Headers {
		headers[k] = v
	}
	headers["User-Agent"] = p.id.UserAgent

	status, body, err := helpers.FetchPage(ctx, url, headers)
	if err != nil {
		return status, err
	}
	if status >= 400 {
		return status, nil
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return status, fmt.Errorf("failed to parse HTML: %w", err)
	}
	p.doc = doc
	return status, nil
}

func (p *staticPage) find(selector string) (*goquery.Selection, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	sel := p.doc.Find(selector)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("selector %q not found", selector)
	}
	return sel.First(), nil
}

func (p *staticPage) WaitVisible(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.find(selector)
	return err
}

func (p *staticPage) ScrollBy(context.Context, int) error { return nil }

func (p *staticPage) Text(_ context.Context, selector string) (string, error) {
	sel, err := p.find(selector)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sel.Text()), nil
}

func (p *staticPage) Close() error {
	p.doc = nil
	return nil
}
