package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"motion-collector/internal/collector"
	"motion-collector/internal/platform/config"
	"motion-collector/internal/platform/logger"
	"motion-collector/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	_ = config.Load()

	udpAddr := config.GetEnv("UDP_ADDR", ":12345")
	httpAddr := config.GetEnv("HTTP_ADDR", ":8080")
	outputDir := config.GetEnv("OUTPUT_DIR", filepath.Join("data", "button_collected"))
	manifestPath := config.GetEnv("MANIFEST_DB", filepath.Join(outputDir, "manifest.sqlite"))
	bufferCapacity := config.GetEnvInt("BUFFER_CAPACITY", collector.DefaultBufferCapacity)
	baseline := config.GetEnvDuration("BASELINE_DURATION", collector.DefaultBaselineDuration)
	rateHz := config.GetEnvInt("NOISE_SAMPLE_RATE", collector.DefaultSampleRateHz)
	target := config.GetEnvInt("NOISE_TARGET_SEGMENTS", collector.DefaultTargetSegments)
	seed := config.GetEnvUint64("NOISE_SEED", 0)
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	csvStore, err := collector.NewCSVStore(outputDir)
	if err != nil {
		log.Error("output directory unavailable", "error", err)
		os.Exit(1)
	}
	if abs, err := filepath.Abs(outputDir); err == nil {
		outputDir = abs
	}

	sessionID := uuid.NewString()
	var store collector.ArtifactStore = csvStore
	var manifest *collector.SQLiteManifest
	if manifestPath != "off" {
		manifest, err = collector.OpenManifest(manifestPath)
		if err != nil {
			log.Error("manifest unavailable", "path", manifestPath, "error", err)
			os.Exit(1)
		}
		store = collector.NewIndexedStore(csvStore, manifest, sessionID, log)
	}

	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	locomotion, action := collector.Locomotion, collector.ActionGranularity
	if rateHz > 0 {
		locomotion.RateHz, action.RateHz = rateHz, rateHz
	}
	segmenter := collector.NewSegmenter(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), target, locomotion, action)

	met := metrics.New()
	sess := collector.NewSession(store,
		collector.WithID(sessionID),
		collector.WithOutputLocation(outputDir),
		collector.WithLogger(log),
		collector.WithMetrics(met),
		collector.WithBufferCapacity(bufferCapacity),
		collector.WithBaselineDuration(baseline),
		collector.WithSegmenter(segmenter),
	)

	ln, err := collector.Listen(udpAddr, sess, log, met)
	if err != nil {
		log.Error("udp listener failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ln.Serve(gctx) })

	if httpAddr != "" {
		h := collector.NewHandler(sess, log)
		r := chi.NewRouter()
		r.Use(logger.RequestLogger(log))
		r.Use(metrics.RequestMiddleware(met))
		r.Get("/healthz", h.Healthz)
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			met.Handler(func() {
				_, active := sess.Active()
				met.SetRecordingActive(active)
				met.SetBufferOccupancy(sess.BufferOccupancy())
				met.SetNoiseWindowSamples(sess.NoiseSamples())
			}).ServeHTTP(w, r)
		})
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Get("/stats", h.GetStats)
			r.Get("/recording", h.GetRecording)
		})

		srv := &http.Server{Addr: httpAddr, Handler: r}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	log.Info("collector started",
		"session_id", sessionID,
		"udp_addr", ln.Addr().String(),
		"http_addr", httpAddr,
		"output_dir", outputDir,
		"manifest", manifestPath,
		"baseline", baseline.String(),
		"buffer_capacity", bufferCapacity,
		"noise_target_segments", segmenter.Target(),
	)
	log.Info("default state is noise; capturing baseline", "baseline", baseline.String())

	serveErr := g.Wait()
	if serveErr != nil {
		log.Error("collector stopped with error", "error", serveErr)
	} else {
		log.Info("stopping data collector")
	}

	if _, err := sess.Finalize(context.Background()); err != nil {
		log.Error("noise finalization incomplete", "error", err)
	}
	sess.LogSummary()

	if manifest != nil {
		if err := manifest.Close(); err != nil {
			log.Warn("manifest close failed", "error", err)
		}
	}
	if serveErr != nil {
		os.Exit(1)
	}
}
