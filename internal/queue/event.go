// Package queue defines the lifecycle event payloads exchanged over the
// message broker and the audit consumer that records them.
package queue

// SectionEventsQueue is the durable queue lifecycle events are routed to.
const SectionEventsQueue = "section.lifecycle"

// Event types.
const (
	EventSectionInstalled   = "section.installed"
	EventSectionUpdated     = "section.updated"
	EventSectionUninstalled = "section.uninstalled"
	EventSectionsCleanedUp  = "sections.cleaned_up"
	EventLandingPageCreated = "landing_page.created"
)

// SectionEvent is published after a lifecycle operation changed a shop's
// theme or ledger.  It carries enough context for audit logging without a
// database lookup.
type SectionEvent struct {
	Type        string `json:"type"`
	ShopID      uint64 `json:"shop_id"`
	ShopDomain  string `json:"shop_domain"`
	SectionSlug string `json:"section_slug,omitempty"`
	Version     string `json:"version,omitempty"`
	ThemeID     string `json:"theme_id,omitempty"`
	AssetKey    string `json:"asset_key,omitempty"`
	Count       int    `json:"count,omitempty"`
	OccurredAt  string `json:"occurred_at"`
}
