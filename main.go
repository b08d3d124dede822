package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/wordgames/assets"
	"github.com/robalobadob/wordgames/internal/config"
	"github.com/robalobadob/wordgames/internal/dictionary"
	"github.com/robalobadob/wordgames/internal/httpserver"
	"github.com/robalobadob/wordgames/internal/match"
	"github.com/robalobadob/wordgames/internal/realtime"
	"github.com/robalobadob/wordgames/internal/rooms"
	"github.com/robalobadob/wordgames/internal/session"
	"github.com/robalobadob/wordgames/internal/store"
	"github.com/robalobadob/wordgames/internal/tiles"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	board, err := dictionary.Load("board", cfg.Words.DictionaryFile, assets.DictionaryList)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load dictionary")
	}
	answers, err := dictionary.Load("answers", cfg.Words.AnswersFile, assets.AnswersList)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load wordle answers")
	}
	allowed, err := dictionary.Load("allowed", cfg.Words.AllowedFile, assets.AllowedList)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load wordle guesses")
	}
	guesses := dictionary.Merge("wordle", allowed, answers)

	table, err := tiles.LoadTable(cfg.Words.LettersFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load letter table")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStore(ctx, cfg)
	defer st.Close()

	hub := realtime.NewHub()
	var relay *realtime.Relay
	if cfg.NATS.URL != "" {
		relay, err = realtime.NewRelay(hub, realtime.RelayOptions{
			URL:           cfg.NATS.URL,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
		})
		if err != nil {
			log.Warn().Err(err).Msg("nats unavailable; broadcasts stay on this node")
			relay = nil
		}
	}

	wordChain := match.Settings{
		BoardSize:          cfg.Board.Size,
		MaxLettersPerTurn:  cfg.Board.MaxLettersPerTurn,
		RoundsPerIncrement: cfg.Board.RoundsPerIncrement,
		GrowthStep:         cfg.Board.GrowthStep,
	}
	svc := rooms.New(st, board, table, hub, session.NewIssuer(cfg.JWTSecret, cfg.Rooms.TTL), rooms.Options{
		ValidationTimeout: cfg.Rooms.ValidationTimeout,
		IdleTTL:           cfg.Rooms.TTL,
		Defaults:          map[match.Variant]match.Settings{match.WordChain: wordChain},
	})

	srv := httpserver.New(httpserver.Deps{
		Rooms:   svc,
		Hub:     hub,
		Store:   st,
		Board:   board,
		Wordle:  guesses,
		Answers: answers,
	}, httpserver.Options{
		ClientOrigin:   cfg.ClientOrigin,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		DailySalt:      cfg.Words.DailySalt,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Backend).Msg("starting wordgames server")
		return srv.Start(cfg.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(sctx)
	})
	g.Go(func() error { return store.RunSweeper(gctx, st, cfg.Rooms.SweepInterval) })
	g.Go(func() error { return store.RunSweeper(gctx, svc, cfg.Rooms.SweepInterval) })
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func setupLogging(cfg *config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openStore opens the configured room store, falling back to memory so the
// server still starts when redis or sqlite is unreachable.
func openStore(ctx context.Context, cfg *config.Config) store.RoomStore {
	octx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	st, err := store.Open(octx, store.Options{
		Backend:       cfg.Store.Backend,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		SQLitePath:    cfg.Store.SQLitePath,
		TTL:           cfg.Rooms.TTL,
	})
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.Store.Backend).Msg("room store unavailable; using memory")
		return store.NewMemory(cfg.Rooms.TTL)
	}
	return st
}
