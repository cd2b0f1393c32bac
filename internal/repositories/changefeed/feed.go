// Package changefeed implements repositories.ChangeFeed on Redis Pub/Sub for
// multi-instance deployments and on a watermill GoChannel for a single process.
package changefeed

const channelPrefix = "recruitx:changes:"

func channelName(collection string) string {
	return channelPrefix + collection
}

// signal forwards a change notice without blocking. A pending notice already
// covers any later change, since subscribers re-read the whole set.
func signal(out chan<- struct{}) {
	select {
	case out <- struct{}{}:
	default:
	}
}
