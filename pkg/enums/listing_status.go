package enums

import "fmt"

// ListingStatus is the single source of truth for which lifecycle operations
// are permitted on a listing.
type ListingStatus string

const (
	ListingStatusDraft           ListingStatus = "draft"
	ListingStatusGeneratingMedia ListingStatus = "generating_media"
	ListingStatusMediaReady      ListingStatus = "media_ready"
	ListingStatusApproved        ListingStatus = "approved"
	ListingStatusPublishing      ListingStatus = "publishing"
	ListingStatusPublished       ListingStatus = "published"
	ListingStatusError           ListingStatus = "error"
)

var validListingStatuses = []ListingStatus{
	ListingStatusDraft,
	ListingStatusGeneratingMedia,
	ListingStatusMediaReady,
	ListingStatusApproved,
	ListingStatusPublishing,
	ListingStatusPublished,
	ListingStatusError,
}

// String returns the literal string for the status.
func (s ListingStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseListingStatus converts raw input into a ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	for _, candidate := range validListingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}
