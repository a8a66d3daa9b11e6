package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leofalp/polychat/providers/ai"
)

// requestFlags are the per-request overrides shared by send and chat.
type requestFlags struct {
	model         string
	temperature   float64
	noStream      bool
	showReasoning bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model override")
	cmd.Flags().Float64VarP(&f.temperature, "temperature", "t", 0, "Temperature override")
	cmd.Flags().BoolVar(&f.noStream, "no-stream", false, "Wait for the full reply instead of streaming")
	cmd.Flags().BoolVar(&f.showReasoning, "reasoning", false, "Print reasoning to stderr")
}

func (f *requestFlags) temperatureOverride(cmd *cobra.Command) *float64 {
	if !cmd.Flags().Changed("temperature") {
		return nil
	}
	return &f.temperature
}

func (f *requestFlags) reasoningWriter(cmd *cobra.Command) io.Writer {
	if !f.showReasoning {
		return nil
	}
	return cmd.ErrOrStderr()
}

func newSendCmd(a *app) *cobra.Command {
	var (
		flags  requestFlags
		system string
		images []string
		files  []string
	)

	cmd := &cobra.Command{
		Use:   "send [prompt]",
		Short: "Send one message and print the reply (reads stdin without arguments)",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			if prompt == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read prompt: %w", err)
				}
				prompt = string(data)
			}
			prompt = withAttachmentMarkers(strings.TrimSpace(prompt), images, files)
			if prompt == "" {
				return errors.New("prompt is empty")
			}

			s, err := a.newSession()
			if err != nil {
				return err
			}

			var messages []ai.Message
			if system != "" {
				messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: system})
			}
			messages = append(messages, ai.Message{Role: ai.RoleUser, Content: prompt})

			request := s.request(messages, flags.model, flags.temperatureOverride(cmd))
			_, err = s.exchange(cmd.Context(), request, flags.noStream, cmd.OutOrStdout(), flags.reasoningWriter(cmd))
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&system, "system", "s", "", "System prompt override")
	cmd.Flags().StringSliceVar(&images, "image", nil, "Attach an image by id")
	cmd.Flags().StringSliceVar(&files, "file", nil, "Attach a file by id")

	return cmd
}

// withAttachmentMarkers appends one marker per attachment id to prompt.
func withAttachmentMarkers(prompt string, images, files []string) string {
	var builder strings.Builder
	builder.WriteString(prompt)
	for _, id := range images {
		fmt.Fprintf(&builder, "\n<image-uuid>%s</image-uuid>", id)
	}
	for _, id := range files {
		fmt.Fprintf(&builder, "\n<file-uuid>%s</file-uuid>", id)
	}
	return strings.TrimSpace(builder.String())
}
