package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/BeatGlow/fbsync"
	"github.com/BeatGlow/fbsync/framebuffer"
	"github.com/BeatGlow/fbsync/pixel"
)

func main() {
	fpsFlag := flag.Int("fps", fbsync.DefaultFPS, "Target frame rate")
	manualFlag := flag.Bool("manual", false, "Only sync when a new frame is drawn")
	orderFlag := flag.String("order", "", "Color order override (rgb or bgr)")
	blPinFlag := flag.String("bl", "", "Backlight GPIO pin")
	imageFlag := flag.String("image", "", "Image to show in the center of the screen")
	overlayFlag := flag.Bool("overlay", true, "Show the measured frame rate")
	metricsFlag := flag.String("metrics", "", "Serve Prometheus metrics on this address")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <device>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Device is a framebuffer path such as /dev/fb1, or %s_<width>x<height>\n", framebuffer.DummyPath)
		os.Exit(1)
	}

	if *debugFlag {
		fbsync.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	var options []framebuffer.Option
	switch strings.ToLower(*orderFlag) {
	case "":
	case "rgb":
		options = append(options, framebuffer.WithOrder(pixel.RGB))
	case "bgr":
		options = append(options, framebuffer.WithOrder(pixel.BGR))
	default:
		fatal(fmt.Errorf("invalid color order %q specified", *orderFlag))
	}

	if *blPinFlag != "" {
		if _, err := host.Init(); err != nil {
			fatal(err)
		}
		pin := gpioreg.ByName(*blPinFlag)
		if pin == nil {
			fatal(fmt.Errorf("unknown backlight pin %q", *blPinFlag))
		}
		options = append(options, framebuffer.WithBacklight(pin))
	}

	dev, err := framebuffer.Open(flag.Arg(0), options...)
	if err != nil {
		fatal(err)
	}
	defer dev.Close()
	fmt.Printf("using device: %s\n", dev)

	mode := fbsync.Auto
	if *manualFlag {
		mode = fbsync.Manual
	}
	surface := pixel.NewSurface(dev.Width(), dev.Height())
	scheduler, err := fbsync.New(dev, surface, &fbsync.Config{
		Mode: mode,
		FPS:  *fpsFlag,
	})
	if err != nil {
		fatal(err)
	}
	fmt.Printf("using %s sync at %d fps\n", mode, scheduler.FPS())

	var logo image.Image
	if *imageFlag != "" {
		if logo, err = loadImage(*imageFlag, surface.Bounds()); err != nil {
			fatal(err)
		}
	}

	var text *overlay
	if *overlayFlag {
		if text, err = newOverlay(surface); err != nil {
			fatal(err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if err = scheduler.Start(ctx); err != nil {
		fatal(err)
	}
	g.Go(func() error {
		<-ctx.Done()
		scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		return animate(ctx, scheduler, surface, logo, text)
	})

	if *metricsFlag != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			fbsync.NewCollector(scheduler),
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server := &http.Server{
			Addr:              *metricsFlag,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			<-ctx.Done()
			return server.Close()
		})
		g.Go(func() error {
			fmt.Printf("serving metrics on http://%s/metrics\n", *metricsFlag)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	fmt.Println("hit control-c to stop...")
	if err = g.Wait(); err != nil {
		fatal(err)
	}

	stats := scheduler.Stats()
	fmt.Printf("synced %d frames, %d pixels changed, %d errors\n", stats.Frames, stats.Changed, stats.Errors)
}

// animate draws a moving gradient until ctx is done.
func animate(ctx context.Context, s *fbsync.Scheduler, surface *pixel.Surface, logo image.Image, text *overlay) error {
	var (
		offset int
		ticker = time.NewTicker(50 * time.Millisecond)
		r      = surface.Bounds()
	)
	defer ticker.Stop()

	for {
		// Draw gradient
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				surface.SetARGB(x, y, pixel.NewARGB(
					uint8(x+y+offset),
					uint8(x-y+offset),
					uint8(x+y-offset),
				))
			}
		}

		drawBorder(surface, r, 8, pixel.White)
		if logo != nil {
			drawCentered(surface, logo)
		}
		if text != nil {
			if err := text.draw(fmt.Sprintf("%d fps", s.Stats().MeasuredFPS)); err != nil {
				return err
			}
		}

		if s.Mode() == fbsync.Manual {
			if err := s.RequestRepaint(); errors.Is(err, fbsync.ErrStopped) {
				return nil
			} else if err != nil {
				return err
			}
		}

		offset++
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal: "+err.Error())
	os.Exit(1)
}
