package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"email-responder/internal/pipeline"
)

func newResolveCmd(configPath *string) *cobra.Command {
	var (
		sender   string
		extra    string
		typeHint string
	)

	cmd := &cobra.Command{
		Use:   "resolve [message]",
		Short: "Resolve one message and print the result as JSON (reads stdin when no message is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			if message == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				message = string(data)
			}
			if strings.TrimSpace(message) == "" {
				return errors.New("no message given")
			}

			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.orchestrator.Resolve(cmd.Context(), pipeline.Request{
				Message:  message,
				Sender:   sender,
				Context:  extra,
				TypeHint: typeHint,
			})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				pipeline.Result
				ProcessingTime float64 `json:"processing_time"`
			}{res, res.Duration.Seconds()})
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "sender of the message")
	cmd.Flags().StringVar(&extra, "context", "", "extra context for the reply")
	cmd.Flags().StringVarP(&typeHint, "type", "t", "", "requested response type or tone")
	return cmd
}
