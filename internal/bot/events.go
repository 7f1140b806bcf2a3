// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/paperbot/pkg/types"
)

// Callback is a decoded inline-keyboard press. The tag set is closed:
// anything that does not parse is dropped at the transport boundary with a
// toast, never routed into the dialogue.
type Callback struct {
	Kind CallbackKind

	// Role is set for KindSelectType.
	Role types.UserType

	// Index is set for KindApproveSource.
	Index int

	// DraftID and Rating are set for KindRate.
	DraftID string
	Rating  int

	// Tag is set for KindFilterTag.
	Tag string
}

// CallbackKind enumerates every button the bot ever renders.
type CallbackKind int

const (
	KindSelectType CallbackKind = iota + 1
	KindConfirmProcess
	KindApproveSource
	KindApproveAll
	KindStartDraft
	KindCancelSources
	KindRate
	KindFilterTag
	KindRevisionApply
	KindRevisionDiscard
)

// Callback tag builders. Parsing and rendering share these so the two
// cannot drift apart.
func tagSelectType(role types.UserType) string { return "type_" + string(role) }
func tagApproveSource(i int) string            { return "approve_source_" + strconv.Itoa(i) }
func tagRate(draftID string, n int) string {
	return fmt.Sprintf("rate_%s_%d", draftID, n)
}
func tagFilterTag(tag string) string { return "filter_tag_" + tag }

const (
	tagConfirmProcess  = "confirm_process"
	tagApproveAll      = "approve_all"
	tagStartDraft      = "start_draft"
	tagCancelSources   = "cancel_sources"
	tagRevisionApply   = "revision_apply"
	tagRevisionDiscard = "revision_discard"
)

// ParseCallback decodes a callback tag. The second return is false for
// anything outside the closed set, including stale tags from older bot
// versions.
func ParseCallback(data string) (Callback, bool) {
	switch data {
	case tagConfirmProcess:
		return Callback{Kind: KindConfirmProcess}, true
	case tagApproveAll:
		return Callback{Kind: KindApproveAll}, true
	case tagStartDraft:
		return Callback{Kind: KindStartDraft}, true
	case tagCancelSources:
		return Callback{Kind: KindCancelSources}, true
	case tagRevisionApply:
		return Callback{Kind: KindRevisionApply}, true
	case tagRevisionDiscard:
		return Callback{Kind: KindRevisionDiscard}, true
	}

	switch {
	case strings.HasPrefix(data, "type_"):
		role := types.UserType(strings.TrimPrefix(data, "type_"))
		if !role.Valid() {
			return Callback{}, false
		}
		return Callback{Kind: KindSelectType, Role: role}, true

	case strings.HasPrefix(data, "approve_source_"):
		i, err := strconv.Atoi(strings.TrimPrefix(data, "approve_source_"))
		if err != nil || i < 0 {
			return Callback{}, false
		}
		return Callback{Kind: KindApproveSource, Index: i}, true

	case strings.HasPrefix(data, "rate_"):
		// rate_<draftID>_<n>; the draft id itself contains no underscores.
		rest := strings.TrimPrefix(data, "rate_")
		idx := strings.LastIndex(rest, "_")
		if idx <= 0 {
			return Callback{}, false
		}
		n, err := strconv.Atoi(rest[idx+1:])
		if err != nil || n < 1 || n > 5 {
			return Callback{}, false
		}
		return Callback{Kind: KindRate, DraftID: rest[:idx], Rating: n}, true

	case strings.HasPrefix(data, "filter_tag_"):
		tag := strings.TrimPrefix(data, "filter_tag_")
		if tag == "" {
			return Callback{}, false
		}
		return Callback{Kind: KindFilterTag, Tag: tag}, true
	}

	return Callback{}, false
}
