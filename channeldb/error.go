package channeldb

import "fmt"

var (
	// ErrChannelNotFound is returned by FetchChannel when no snapshot is
	// stored under the requested channel ID.
	ErrChannelNotFound = fmt.Errorf("channeldb: channel not found")
)
