// Package stream talks to the local torrent-stream server that turns an
// info hash into a playable HTTP URL.
package stream

import (
	"context"

	"github.com/samber/mo"
)

// Resolver is the stream resolution collaborator.
//
// Only ResolveStream reports a result. StopTorrent and HandleSeek are
// best-effort: failures are logged and otherwise ignored.
type Resolver interface {
	// ResolveStream returns a playable URL for one file of the torrent.
	// A negative fileIndex lets the server pick the main file.
	ResolveStream(ctx context.Context, infoHash string, fileIndex int) mo.Option[string]
	// StopTorrent releases the server-side transfer.
	StopTorrent(ctx context.Context, infoHash string)
	// HandleSeek hints that playback jumped to position seconds so the
	// server can prioritize the matching pieces.
	HandleSeek(ctx context.Context, infoHash string, fileIndex int, position float64)
}
