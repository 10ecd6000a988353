package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"prometheus/internal/audio"
	"prometheus/internal/capture"
	"prometheus/internal/config"
	"prometheus/internal/convo"
	"prometheus/internal/intent"
	"prometheus/internal/ipc"
	"prometheus/internal/journal"
	"prometheus/internal/listen"
	"prometheus/internal/loop"
	"prometheus/internal/notify"
	"prometheus/internal/proxy"
	"prometheus/internal/shell"
	"prometheus/internal/tts"
	"prometheus/internal/vision"
	"prometheus/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address (empty for direct)")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	socketPath := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	utterances := cli.StringSlice("utterances", nil, "Audio files to play back instead of the microphone")
	autostart := cli.Bool("autostart", false, "Start the loop immediately without waiting for a start signal")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded config")

	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if *proxyAddr != "" {
		httpClient, err := proxy.NewSocksClient(*proxyAddr)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
			os.Exit(1)
		}
		opts = append(opts, option.WithHTTPClient(httpClient))
		log.Debug("Loaded proxy")
	}
	client := openai.NewClient(opts...)

	whisper, err := stt.NewTranscriber(cfg.WhisperModelPath)
	if err != nil {
		log.Error("Failed to init whisper", "model", cfg.WhisperModelPath, "err", err)
		os.Exit(1)
	}
	defer whisper.Close()

	log.Debug("Loaded whisper")

	var listener listen.Listener
	if len(*utterances) > 0 {
		listener = listen.NewFile(whisper, *utterances)
		log.Info("Using scripted audio input", "files", len(*utterances))
	} else {
		rec := audio.NewRecorder()
		if err := rec.Init(); err != nil {
			log.Error("Failed to init audio", "err", err)
			os.Exit(1)
		}
		defer rec.Close()
		if err := rec.Calibrate(); err != nil {
			log.Warn("Ambient calibration failed, using default threshold", "err", err)
		}
		listener = listen.NewMic(rec, whisper)
		log.Debug("Loaded recorder")
	}

	sh := shell.New()
	engine := convo.NewEngine(convo.NewOpenAICompleter(client, cfg.ChatModel), cfg.MaxTurns)
	l := loop.New(
		listener,
		intent.NewRouter(client, cfg.IntentModel),
		capture.NewScreen(cfg.ScreenshotPath),
		vision.NewDescriber(client, cfg.VisionModel),
		engine,
		tts.NewSpeaker(client, cfg.SpeechModel, cfg.Voice),
		journal.New(cfg.ReportPath),
		sh,
		cfg.IdleDelay,
	)
	l.SetChime(notify.Chime)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: sh.Handler()}
	go func() {
		log.Info("Shell listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Shell server failed", "err", err)
		}
	}()

	ctl, err := ipc.NewServer(*socketPath, sh)
	if err != nil {
		log.Error("Failed to open control socket", "err", err)
		os.Exit(1)
	}
	defer ctl.Close()

	log.Info("Boot up - successful")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *autostart {
		sh.Start()
	}

	select {
	case <-sh.Started():
		log.Info("Session started")
	case <-ctx.Done():
		log.Info("Shutting down before start")
		srv.Close()
		return
	}

	if err := l.Run(ctx); err != nil {
		log.Error("Session loop failed", "err", err)
	}

	srv.Close()
	log.Info("Shut down")
}
