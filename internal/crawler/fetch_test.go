package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricewatch/internal/models"
)

const productPage = `<html><body>
<div class="price-box"><span class="price">
  $24.99
</span></div>
<span class="price">$1.00</span>
</body></html>`

func TestStaticPage(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(productPage))
	}))
	defer server.Close()

	browser, err := StaticLauncher{}.Launch(context.Background())
	require.NoError(t, err)
	defer browser.Close()

	id := NewIdentity()
	page, err := browser.NewPage(context.Background(), id)
	require.NoError(t, err)
	defer page.Close()

	status, err := page.Navigate(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, id.UserAgent, gotUA)

	require.NoError(t, page.WaitVisible(context.Background(), ".price-box .price"))
	text, err := page.Text(context.Background(), ".price-box .price")
	require.NoError(t, err)
	assert.Equal(t, "$24.99", text)

	assert.Error(t, page.WaitVisible(context.Background(), ".missing"))
	assert.NoError(t, page.ScrollBy(context.Background(), 500))
}

func TestStaticPageErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	page, err := staticBrowser{}.NewPage(context.Background(), NewIdentity())
	require.NoError(t, err)

	status, err := page.Navigate(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Error(t, page.WaitVisible(context.Background(), ".price"))
}

func TestExtractWithStaticEngine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(productPage))
	}))
	defer server.Close()

	browser, err := StaticLauncher{}.Launch(context.Background())
	require.NoError(t, err)

	c := testCompetitor()
	c.ProductURL = server.URL

	log := &recordingLog{}
	d := newTestExtractor(log, &recordingSleep{}).Extract(context.Background(), browser, c)

	assert.True(t, d.Success)
	assert.Equal(t, 24.99, *d.Price)
	require.Len(t, log.entries, 1)
	assert.Equal(t, models.OutcomeSuccess, log.entries[0].Outcome)
}
