package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/surveyloom-cli/internal/server"
	"github.com/KaramelBytes/surveyloom-cli/internal/summarize"
)

var (
	srvAddr       string
	srvAPIKey     string
	srvProvider   string
	srvModel      string
	srvOllamaHost string
	srvNoLLM      bool
	srvMaxUpload  int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the counts, correlation and summarization pipelines over HTTP",
	Long: `Serve exposes:
  POST /create_counts_table       multipart 'file', query 'filters', 'group_filter'
  POST /create_correlation_table  same inputs
  POST /summarize_responses       same inputs plus 'question'
  GET  /healthz, GET /metrics

When server_api_key (or --api-key) is set, POST routes require 'Authorization: Bearer <key>'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ServerAddr
		if cmd.Flags().Changed("addr") || addr == "" {
			addr = srvAddr
		}
		key := cfg.ServerAPIKey
		if cmd.Flags().Changed("api-key") {
			key = srvAPIKey
		}

		opt := server.Options{
			APIKey:         key,
			Load:           loadOptions(),
			Logger:         logger,
			MaxUploadBytes: srvMaxUpload,
		}
		if !srvNoLLM {
			rt, provider, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: srvProvider, OllamaHost: srvOllamaHost})
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: summarization disabled: %v\n", err)
			} else {
				sopt := summarizerOptions()
				sopt.Model = srvModel
				if sopt.Model == "" {
					sopt.Model = cfg.Model(provider)
				}
				opt.Summarizer = summarize.NewLLMSummarizer(rt, sopt)
				logger.Info("summarization enabled", zap.String("provider", provider), zap.String("model", sopt.Model))
			}
		}
		if key == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Warning: no server_api_key set; POST routes are unauthenticated")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on %s\n", addr)
		return server.New(opt).Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", ":8080", "listen address (overrides config server_addr)")
	serveCmd.Flags().StringVar(&srvAPIKey, "api-key", "", "bearer token required on POST routes (overrides config server_api_key)")
	serveCmd.Flags().StringVar(&srvProvider, "provider", "", "LLM provider for /summarize_responses: openrouter|openai|ollama")
	serveCmd.Flags().StringVar(&srvModel, "model", "", "model for /summarize_responses")
	serveCmd.Flags().StringVar(&srvOllamaHost, "ollama-host", "", "override Ollama host")
	serveCmd.Flags().BoolVar(&srvNoLLM, "no-llm", false, "disable /summarize_responses")
	serveCmd.Flags().Int64Var(&srvMaxUpload, "max-upload-bytes", server.DefaultMaxUploadBytes, "maximum request body size")
}
