// speaknode turns meeting transcripts into a queryable knowledge graph
// and answers questions about them through a tool-routing agent.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Kinder1203/SpeakNode/internal/agent"
	"github.com/Kinder1203/SpeakNode/internal/config"
	"github.com/Kinder1203/SpeakNode/internal/embed"
	"github.com/Kinder1203/SpeakNode/internal/extract"
	"github.com/Kinder1203/SpeakNode/internal/llm"
	"github.com/Kinder1203/SpeakNode/internal/search"
	"github.com/Kinder1203/SpeakNode/internal/server"
	"github.com/Kinder1203/SpeakNode/internal/session"
	"github.com/Kinder1203/SpeakNode/internal/store"
	"github.com/Kinder1203/SpeakNode/internal/tools"
)

var (
	cfgPath string
	dataset string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "speaknode",
	Short: "Meeting knowledge graph and Q&A agent",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config YAML")
	rootCmd.PersistentFlags().StringVar(&dataset, "dataset", "default", "Dataset to operate on")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, askCmd, ingestCmd, exportCmd, importCmd, datasetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds everything a command needs, wired once per invocation.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	sessions *session.Manager
	engine   *search.Engine
	orch     *agent.Orchestrator
	pipeline *extract.Pipeline
}

func buildApp() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	client := llm.NewClient(cfg.LLM.APIKey)
	cache := embed.NewCache(func() (embed.Provider, error) {
		return embed.NewHTTPProvider(cfg.Embedding.Endpoint, cfg.Embedding.Model, cfg.Embedding.Dimensions), nil
	})
	engine := search.NewEngine(cache, client, cfg.Search, cfg.LLM.TranslatorModel, logger)
	sessions := session.NewManager(cfg.DataDir, cfg.Embedding.Dimensions, logger)

	registry := tools.DefaultRegistry()
	registry.SetLogger(tools.NewZerologLogger(logger))

	orch := agent.New(client, registry, cfg.LLM.RouterModel, cfg.LLM.SynthesizerModel, cfg.LLM.SynthesizerTemperature, logger)
	extractor := extract.NewExtractor(client, cfg.LLM.ExtractorModel, logger)
	pipeline := extract.NewPipeline(cache, extractor, logger)

	return &app{
		cfg:      cfg,
		log:      logger,
		sessions: sessions,
		engine:   engine,
		orch:     orch,
		pipeline: pipeline,
	}, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.sessions.Close()

		srv := server.NewServer(a.cfg.HTTP, a.sessions, a.engine, a.orch, a.pipeline, a.log)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			a.log.Info().Str("signal", sig.String()).Msg("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(ctx)
		}
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question against a dataset",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.sessions.Close()

		sess, err := a.sessions.Get(dataset)
		if err != nil {
			return err
		}
		sess.Lock()
		defer sess.Unlock()

		question := args[0]
		for _, arg := range args[1:] {
			question += " " + arg
		}
		deps := tools.Deps{Store: sess.Store, Search: a.engine}
		state, err := a.orch.Answer(cmd.Context(), deps, []llm.Message{{Role: "user", Content: question}})
		if err != nil {
			return err
		}
		fmt.Println(state.FinalAnswer)
		return nil
	},
}

var (
	ingestTitle string
	ingestDate  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [segments.json]",
	Short: "Ingest a transcript segments file into a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.sessions.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading segments file: %w", err)
		}
		var segments []store.Segment
		if err := json.Unmarshal(data, &segments); err != nil {
			return fmt.Errorf("parsing segments file: %w", err)
		}

		sess, err := a.sessions.Get(dataset)
		if err != nil {
			return err
		}
		sess.Lock()
		defer sess.Unlock()

		title := ingestTitle
		if title == "" {
			title = args[0]
		}
		meetingID, count, err := a.pipeline.IngestTranscript(cmd.Context(), sess.Store, title, ingestDate, args[0], segments)
		if err != nil {
			if meetingID != "" {
				fmt.Printf("transcript stored as %s (%d utterances) but enrichment failed: %v\n", meetingID, count, err)
				return nil
			}
			return err
		}
		fmt.Printf("ingested %s: %d utterances\n", meetingID, count)
		return nil
	},
}

var (
	exportEmbeddings bool
	exportOut        string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a dataset as a portable JSON dump",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.sessions.Close()

		sess, err := a.sessions.Get(dataset)
		if err != nil {
			return err
		}
		sess.Lock()
		defer sess.Unlock()

		dump, err := sess.Store.ExportDump(exportEmbeddings)
		if err != nil {
			return err
		}
		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(dump)
	},
}

var importCmd = &cobra.Command{
	Use:   "import [dump.json]",
	Short: "Restore a dataset from a JSON dump",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.sessions.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading dump file: %w", err)
		}
		var dump store.Dump
		if err := json.Unmarshal(data, &dump); err != nil {
			return fmt.Errorf("parsing dump file: %w", err)
		}

		sess, err := a.sessions.Get(dataset)
		if err != nil {
			return err
		}
		sess.Lock()
		defer sess.Unlock()

		if err := sess.Store.RestoreDump(&dump); err != nil {
			return err
		}
		fmt.Printf("restored %d meetings, %d utterances\n", len(dump.Meetings), len(dump.Utterances))
		return nil
	},
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.sessions.Close()

		ids, err := a.sessions.List()
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "Meeting title (defaults to the file name)")
	ingestCmd.Flags().StringVar(&ingestDate, "date", "", "Meeting date YYYY-MM-DD (defaults to today)")
	exportCmd.Flags().BoolVar(&exportEmbeddings, "embeddings", false, "Include utterance embeddings in the dump")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Write the dump to a file instead of stdout")
}
