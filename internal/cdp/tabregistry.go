package cdp

import (
	"sort"
	"sync"

	"github.com/chromedp/cdproto/target"

	"github.com/dgnsrekt/netmonitor/internal/storage"
	"github.com/dgnsrekt/netmonitor/internal/types"
)

// TabRegistry maps CDP target IDs to tab metadata. Entries are stored by
// value; lookups return copies, so a navigation never mutates a TabInfo a
// caller is holding.
type TabRegistry struct {
	tabs map[target.ID]types.TabInfo
	mu   sync.RWMutex
}

func NewTabRegistry() *TabRegistry {
	return &TabRegistry{tabs: make(map[target.ID]types.TabInfo)}
}

// Register adds a tab or refreshes it after navigation.
func (r *TabRegistry) Register(targetID target.ID, url string) (*types.TabInfo, error) {
	pathSegment, err := storage.TransformURLToPathSegment(url)
	if err != nil {
		return nil, err
	}

	info := types.TabInfo{
		TargetID:    string(targetID),
		URL:         url,
		PathSegment: pathSegment,
		BrowserID:   storage.BrowserIDFromTargetID(string(targetID)),
	}

	r.mu.Lock()
	r.tabs[targetID] = info
	r.mu.Unlock()

	return &info, nil
}

func (r *TabRegistry) Get(targetID target.ID) (*types.TabInfo, bool) {
	r.mu.RLock()
	info, ok := r.tabs[targetID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return &info, true
}

func (r *TabRegistry) GetByStringID(tabID string) (*types.TabInfo, bool) {
	return r.Get(target.ID(tabID))
}

func (r *TabRegistry) Remove(targetID target.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tabs, targetID)
}

// List returns the attached tabs ordered by browser id.
func (r *TabRegistry) List() []types.TabInfo {
	r.mu.RLock()
	out := make([]types.TabInfo, 0, len(r.tabs))
	for _, info := range r.tabs {
		out = append(out, info)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].BrowserID < out[j].BrowserID })
	return out
}

func (r *TabRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}
