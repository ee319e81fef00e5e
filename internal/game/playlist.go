package game

import (
	"context"
	"fmt"

	"songquiz/internal/core"
)

// FetchPlaylist pages through a playlist until the provider-reported total is
// reached. It returns either the complete snapshot or an error, never a
// partial list.
func FetchPlaylist(ctx context.Context, source core.PlaylistSource, playlistID string, pageSize int) ([]core.TrackItem, error) {
	if pageSize <= 0 {
		pageSize = core.DefaultPageSize
	}

	var (
		items   []core.TrackItem
		fetched int
		offset  int
	)

	for {
		page, err := source.PlaylistItems(ctx, playlistID, offset, pageSize)
		if err != nil {
			if core.IsSessionError(err) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: page at offset %d: %w", core.ErrInvalidPlaylistURL, offset, err)
		}

		items = append(items, page.Items...)
		fetched += page.Fetched

		if fetched >= page.Total {
			break
		}
		if page.Fetched == 0 {
			return nil, fmt.Errorf("%w: empty page at offset %d of %d", core.ErrInvalidPlaylistURL, offset, page.Total)
		}

		offset += page.Fetched
	}

	if len(items) == 0 {
		return nil, core.ErrEmptyPlaylist
	}

	return items, nil
}
