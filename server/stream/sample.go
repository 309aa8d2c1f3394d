// stream publishes periodic snapshots of a live value to websocket clients.
package stream

import (
	"time"

	channerics "github.com/niceyeti/channerics/channels"
)

// Sample calls @snapshot once per @period and sends the results on the returned
// chan, which is closed when @done is. A slow reader delays sampling rather than
// queueing snapshots, so readers always see a fresh value.
func Sample[T any](
	done <-chan struct{},
	period time.Duration,
	snapshot func() T,
) <-chan T {
	samples := make(chan T)
	go func() {
		defer close(samples)
		for range channerics.NewTicker(done, period) {
			select {
			case samples <- snapshot():
			case <-done:
				return
			}
		}
	}()
	return samples
}
