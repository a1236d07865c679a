package listings

import (
	"fmt"

	"github.com/brandinbox/brandinbox-backend/pkg/enums"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
)

// Action is a lifecycle operation a caller may request on a listing.
type Action string

const (
	ActionGenerateMedia Action = "generate_media"
	ActionApproveMedia  Action = "approve_media"
	ActionPublish       Action = "publish"
)

// GuardContext carries the listing facts the transition guard needs.
// It is assembled by the orchestrator from the loaded listing row.
type GuardContext struct {
	HasProductPhoto bool
	WantsImage      bool
	WantsVideo      bool
	HasMedia        bool
}

// allowedSources lists the statuses each action may start from. The error
// status appears in every set: a failed action is retried by re-issuing it,
// subject to the same guard as the original attempt.
var allowedSources = map[Action][]enums.ListingStatus{
	ActionGenerateMedia: {enums.ListingStatusDraft, enums.ListingStatusError},
	ActionApproveMedia:  {enums.ListingStatusMediaReady, enums.ListingStatusError},
	ActionPublish:       {enums.ListingStatusApproved, enums.ListingStatusError},
}

// targetStatus is the in-progress (or final) status an allowed action moves to.
var targetStatus = map[Action]enums.ListingStatus{
	ActionGenerateMedia: enums.ListingStatusGeneratingMedia,
	ActionApproveMedia:  enums.ListingStatusApproved,
	ActionPublish:       enums.ListingStatusPublishing,
}

// CanTransition decides whether action is legal for a listing in the given
// status. It never mutates; callers persist the target status themselves
// inside the same transaction as the rest of the write.
func CanTransition(status enums.ListingStatus, action Action, gc GuardContext) error {
	sources, ok := allowedSources[action]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown action %q", action))
	}

	if status == enums.ListingStatusPublished {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "listing is already published")
	}

	allowed := false
	for _, source := range sources {
		if source == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot %s a listing in status %s", action, status))
	}

	switch action {
	case ActionGenerateMedia:
		if !gc.HasProductPhoto {
			return pkgerrors.New(pkgerrors.CodeValidation, "product photo is required before generating media")
		}
		if !gc.WantsImage && !gc.WantsVideo {
			return pkgerrors.New(pkgerrors.CodeValidation, "at least one of image or video generation must be requested")
		}
	case ActionPublish:
		if !gc.HasMedia {
			return pkgerrors.New(pkgerrors.CodeValidation, "listing has no media assets to publish")
		}
	}

	return nil
}

// TargetStatus returns the status an allowed action transitions into.
func TargetStatus(action Action) enums.ListingStatus {
	return targetStatus[action]
}
