package cdp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/dgnsrekt/netmonitor/internal/capture"
)

const bodyFetchTimeout = 10 * time.Second

// Config selects the browser and tabs to attach to.
type Config struct {
	CDPURL       string
	TabURLFilter string
}

// Client attaches to browser tabs over CDP and feeds their network events
// to a BrowserCapture.
type Client struct {
	cfg         Config
	capture     *capture.BrowserCapture
	tabRegistry *TabRegistry
	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabs        map[target.ID]*TabContext
	tabsMu      sync.RWMutex
}

type TabContext struct {
	ID     target.ID
	URL    string
	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(cfg Config, capture *capture.BrowserCapture, tabRegistry *TabRegistry) *Client {
	return &Client{
		cfg:         cfg,
		capture:     capture,
		tabRegistry: tabRegistry,
		tabs:        make(map[target.ID]*TabContext),
	}
}

// Connect attaches to every page target that passes the tab filter.
func (c *Client) Connect(ctx context.Context) error {
	slog.Info("Connecting to Chromium", "url", c.cfg.CDPURL)

	c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), c.cfg.CDPURL)

	tempCtx, tempCancel := chromedp.NewContext(c.allocCtx)
	defer tempCancel()

	if err := chromedp.Run(tempCtx); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	targets, err := chromedp.Targets(tempCtx)
	if err != nil {
		return fmt.Errorf("failed to enumerate targets: %w", err)
	}

	slog.Info("Found browser targets", "count", len(targets))

	attachedCount := 0
	for _, t := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if t.Type != "page" {
			continue
		}
		if !c.matchesTabURL(t.URL) {
			slog.Debug("Skipping tab (url filter)", "url", t.URL)
			continue
		}
		if err := c.attachToTab(t.TargetID, t.URL); err != nil {
			slog.Error("Failed to attach to tab", "target_id", t.TargetID, "url", t.URL, "error", err)
			continue
		}
		attachedCount++
	}

	if attachedCount == 0 {
		return fmt.Errorf("no tabs found matching MONITOR_TAB_URL_FILTER=%q", c.cfg.TabURLFilter)
	}

	labels := make([]string, 0, attachedCount)
	for _, info := range c.tabRegistry.List() {
		labels = append(labels, info.Label())
	}
	slog.Info("Attached to tabs", "count", attachedCount, "tabs", labels, "tab_url_filter", c.cfg.TabURLFilter)
	return nil
}

func (c *Client) attachToTab(targetID target.ID, url string) error {
	tabInfo, err := c.tabRegistry.Register(targetID, url)
	if err != nil {
		return fmt.Errorf("failed to register tab: %w", err)
	}

	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx, chromedp.WithTargetID(targetID))
	tab := &TabContext{ID: targetID, URL: url, ctx: tabCtx, cancel: tabCancel}

	c.tabsMu.Lock()
	c.tabs[targetID] = tab
	c.tabsMu.Unlock()

	if err := chromedp.Run(tabCtx, network.Enable(), page.Enable()); err != nil {
		tabCancel()
		c.tabRegistry.Remove(targetID)
		c.tabsMu.Lock()
		delete(c.tabs, targetID)
		c.tabsMu.Unlock()
		return fmt.Errorf("failed to enable network/page domains: %w", err)
	}

	slog.Info("Attached to tab", "target_id", targetID, "path_segment", tabInfo.PathSegment, "browser_id", tabInfo.BrowserID, "url", truncateURL(url))
	chromedp.ListenTarget(tabCtx, c.createEventHandler(string(targetID)))
	return nil
}

func (c *Client) createEventHandler(tabID string) func(ev interface{}) {
	return func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventFrameNavigated:
			if e.Frame.ParentID == "" {
				if info, err := c.tabRegistry.Register(target.ID(tabID), e.Frame.URL); err == nil {
					slog.Debug("Tab navigated", "tab_id", tabID, "path_segment", info.PathSegment, "url", truncateURL(e.Frame.URL))
				}
			}
		case *network.EventRequestWillBeSent:
			c.capture.OnRequestWillBeSent(tabID, e)
		case *network.EventResponseReceived:
			c.capture.OnResponseReceived(tabID, e)
		case *network.EventLoadingFinished:
			c.capture.OnLoadingFinished(tabID, e, c.bodyFetcher(tabID, e.RequestID))
		case *network.EventLoadingFailed:
			c.capture.OnLoadingFailed(tabID, e)
		}
	}
}

func (c *Client) bodyFetcher(tabID string, requestID network.RequestID) capture.BodyFetcher {
	c.tabsMu.RLock()
	tab, ok := c.tabs[target.ID(tabID)]
	c.tabsMu.RUnlock()
	if !ok {
		return nil
	}

	tabCtx := tab.ctx
	return func() ([]byte, error) {
		bodyCtx, bodyCancel := context.WithTimeout(tabCtx, bodyFetchTimeout)
		defer bodyCancel()

		var body []byte
		err := chromedp.Run(bodyCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			body, err = network.GetResponseBody(requestID).Do(ctx)
			return err
		}))
		return body, err
	}
}

func (c *Client) Close() error {
	c.tabsMu.Lock()
	for id := range c.tabs {
		c.tabRegistry.Remove(id)
	}
	c.tabs = make(map[target.ID]*TabContext)
	c.tabsMu.Unlock()

	if c.allocCancel != nil {
		c.allocCancel()
	}

	slog.Info("CDP client closed")
	return nil
}

func (c *Client) GetTabCount() int {
	c.tabsMu.RLock()
	defer c.tabsMu.RUnlock()
	return len(c.tabs)
}

func (c *Client) matchesTabURL(url string) bool {
	if c.cfg.TabURLFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(c.cfg.TabURLFilter))
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
