package types

// TabInfo describes a browser tab the bridge is attached to.
type TabInfo struct {
	TargetID    string `json:"target_id"`
	URL         string `json:"url"`
	PathSegment string `json:"path_segment"` // e.g. "flags_list"
	BrowserID   string `json:"browser_id"`   // first 8 chars of the target id
}

// Label is the short tab name stored on browser-sourced records.
func (t TabInfo) Label() string {
	return t.BrowserID + "/" + t.PathSegment
}

// TabInfoProvider looks up tab information by target id. It lets capture
// resolve tabs without importing the cdp package.
type TabInfoProvider interface {
	GetByStringID(tabID string) (*TabInfo, bool)
}
