// Package fbsync keeps a framebuffer device in sync with an in-memory pixel
// surface.
//
// The application draws into a [pixel.Surface]; a [Scheduler] copies it to a
// [framebuffer.Device] either continuously under a frame rate cap ([Auto]) or
// once per request ([Manual]). Requests made while a repaint is pending are
// coalesced.
//
//	dev, err := framebuffer.Open("/dev/fb1")
//	if err != nil {
//		return err
//	}
//	defer dev.Close()
//
//	surface := pixel.NewSurface(dev.Width(), dev.Height())
//	s, err := fbsync.New(dev, surface, &fbsync.Config{FPS: 30})
//	if err != nil {
//		return err
//	}
//	if err = s.Start(ctx); err != nil {
//		return err
//	}
//	defer s.Stop()
//
// Set FBSYNC_DEBUG in the environment to log debug output to stderr.
package fbsync
