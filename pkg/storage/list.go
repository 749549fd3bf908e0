package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// MaxListCap bounds a single listing page regardless of the requested size.
const MaxListCap = 5000

// BlobInfo describes a stored blob without its content.
type BlobInfo struct {
	Key           string    `json:"key"`
	ContentType   string    `json:"content_type"`
	ContentLength int64     `json:"content_length"`
	LastModified  time.Time `json:"last_modified"`
}

// ListResult is a single page of a blob listing. NextMarker is empty when the
// listing is exhausted.
type ListResult struct {
	Items      []BlobInfo `json:"items"`
	NextMarker string     `json:"next_marker,omitempty"`
}

// ParseMaxResults parses a raw page-size value, falling back when empty and
// clamping to MaxListCap.
func ParseMaxResults(raw string, fallback int32) (int32, error) {
	if raw == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("max_results must be a positive integer: %q", raw)
	}

	return min(int32(n), MaxListCap), nil
}

func (a *azure) List(ctx context.Context, prefix, marker string, maxResults int32) (*ListResult, error) {
	opts := &azblob.ListBlobsFlatOptions{
		MaxResults: &maxResults,
	}
	if prefix != "" {
		opts.Prefix = &prefix
	}
	if marker != "" {
		opts.Marker = &marker
	}

	pager := a.client.NewListBlobsFlatPager(a.container, opts)

	result := &ListResult{Items: []BlobInfo{}}
	if !pager.More() {
		return result, nil
	}

	page, err := pager.NextPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}

	for _, item := range page.Segment.BlobItems {
		if item.Name == nil {
			continue
		}

		info := BlobInfo{Key: *item.Name}
		if props := item.Properties; props != nil {
			if props.ContentType != nil {
				info.ContentType = *props.ContentType
			}
			if props.ContentLength != nil {
				info.ContentLength = *props.ContentLength
			}
			if props.LastModified != nil {
				info.LastModified = *props.LastModified
			}
		}

		result.Items = append(result.Items, info)
	}

	if page.NextMarker != nil && *page.NextMarker != "" {
		result.NextMarker = *page.NextMarker
	}

	return result, nil
}
