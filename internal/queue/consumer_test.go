package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessageAppendsAuditLine(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	ev := SectionEvent{
		Type:        EventSectionInstalled,
		ShopID:      3,
		ShopDomain:  "demo.myshopify.com",
		SectionSlug: "hero",
		Version:     "2",
		ThemeID:     "7",
		OccurredAt:  "2026-01-02T03:04:05Z",
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, HandleMessage(dir, body))
	require.NoError(t, HandleMessage(dir, body))

	raw, err := os.ReadFile(filepath.Join(dir, AuditLogFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2026-01-02T03:04:05Z] section.installed | shop=demo.myshopify.com | shop_id=3 | section=hero | version=2 | theme=7", lines[0])
}

func TestHandleMessageRejectsBadPayloads(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, HandleMessage(dir, []byte("{not json")))
	assert.Error(t, HandleMessage(dir, []byte(`{"shop_id":1}`)))
}

func TestFormatEventCleanup(t *testing.T) {
	line := FormatEvent(SectionEvent{Type: EventSectionsCleanedUp, ShopID: 1, ShopDomain: "a.myshopify.com", Count: 4, OccurredAt: "t"})
	assert.Equal(t, "[t] sections.cleaned_up | shop=a.myshopify.com | shop_id=1 | count=4\n", line)
}
