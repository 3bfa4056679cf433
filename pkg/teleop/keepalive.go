package teleop

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gwillem/keyteleop/pkg/link"
)

// KeepAlive services a link in the background while the control loop blocks
// on the keyboard.
type KeepAlive struct {
	group errgroup.Group
}

// StartKeepAlive runs l.Spin in its own goroutine. It stops only when the
// link is shut down or fails; Wait joins it.
func StartKeepAlive(ctx context.Context, l link.Link, log zerolog.Logger) *KeepAlive {
	k := &KeepAlive{}
	k.group.Go(func() error {
		err := l.Spin(ctx)
		if err != nil {
			log.Error().Err(err).Msg("keep-alive stopped")
		}
		return err
	})
	return k
}

// Wait blocks until the keep-alive goroutine has returned.
func (k *KeepAlive) Wait() error {
	return k.group.Wait()
}
