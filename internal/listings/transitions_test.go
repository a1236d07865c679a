package listings

import (
	"errors"
	"testing"

	"github.com/brandinbox/brandinbox-backend/pkg/enums"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
)

func codeOf(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	var coded *pkgerrors.Error
	if !errors.As(err, &coded) {
		t.Fatalf("expected coded error, got %v", err)
	}
	return coded.Code()
}

func TestCanTransitionGenerateMedia(t *testing.T) {
	ready := GuardContext{HasProductPhoto: true, WantsImage: true}

	tests := []struct {
		name     string
		status   enums.ListingStatus
		gc       GuardContext
		wantCode pkgerrors.Code
	}{
		{name: "draft with photo and image flag", status: enums.ListingStatusDraft, gc: ready},
		{name: "retry from error", status: enums.ListingStatusError, gc: ready},
		{name: "video only is enough", status: enums.ListingStatusDraft, gc: GuardContext{HasProductPhoto: true, WantsVideo: true}},
		{name: "missing product photo", status: enums.ListingStatusDraft, gc: GuardContext{WantsImage: true}, wantCode: pkgerrors.CodeValidation},
		{name: "no channel requested", status: enums.ListingStatusDraft, gc: GuardContext{HasProductPhoto: true}, wantCode: pkgerrors.CodeValidation},
		{name: "already generating", status: enums.ListingStatusGeneratingMedia, gc: ready, wantCode: pkgerrors.CodeStateConflict},
		{name: "media ready", status: enums.ListingStatusMediaReady, gc: ready, wantCode: pkgerrors.CodeStateConflict},
		{name: "published rejects everything", status: enums.ListingStatusPublished, gc: ready, wantCode: pkgerrors.CodeStateConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CanTransition(tc.status, ActionGenerateMedia, tc.gc)
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("expected allowed, got %v", err)
				}
				return
			}
			if got := codeOf(t, err); got != tc.wantCode {
				t.Fatalf("expected code %s, got %s", tc.wantCode, got)
			}
		})
	}
}

func TestCanTransitionApproveMedia(t *testing.T) {
	if err := CanTransition(enums.ListingStatusMediaReady, ActionApproveMedia, GuardContext{}); err != nil {
		t.Fatalf("expected approve allowed from media_ready, got %v", err)
	}
	if err := CanTransition(enums.ListingStatusError, ActionApproveMedia, GuardContext{}); err != nil {
		t.Fatalf("expected approve retryable from error, got %v", err)
	}
	err := CanTransition(enums.ListingStatusDraft, ActionApproveMedia, GuardContext{})
	if got := codeOf(t, err); got != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", got)
	}
}

func TestCanTransitionPublish(t *testing.T) {
	if err := CanTransition(enums.ListingStatusApproved, ActionPublish, GuardContext{HasMedia: true}); err != nil {
		t.Fatalf("expected publish allowed, got %v", err)
	}
	if err := CanTransition(enums.ListingStatusError, ActionPublish, GuardContext{HasMedia: true}); err != nil {
		t.Fatalf("expected publish retryable from error, got %v", err)
	}

	err := CanTransition(enums.ListingStatusApproved, ActionPublish, GuardContext{})
	if got := codeOf(t, err); got != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error without media, got %s", got)
	}

	err = CanTransition(enums.ListingStatusPublished, ActionPublish, GuardContext{HasMedia: true})
	if got := codeOf(t, err); got != pkgerrors.CodeStateConflict {
		t.Fatalf("expected second publish rejected, got %s", got)
	}

	err = CanTransition(enums.ListingStatusDraft, ActionPublish, GuardContext{HasMedia: true})
	if got := codeOf(t, err); got != pkgerrors.CodeStateConflict {
		t.Fatalf("expected publish from draft rejected, got %s", got)
	}
}

func TestTargetStatus(t *testing.T) {
	if got := TargetStatus(ActionGenerateMedia); got != enums.ListingStatusGeneratingMedia {
		t.Fatalf("unexpected target %s", got)
	}
	if got := TargetStatus(ActionApproveMedia); got != enums.ListingStatusApproved {
		t.Fatalf("unexpected target %s", got)
	}
	if got := TargetStatus(ActionPublish); got != enums.ListingStatusPublishing {
		t.Fatalf("unexpected target %s", got)
	}
}
