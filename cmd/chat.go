package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/hyde/internal/services"
	"github.com/desertthunder/hyde/internal/shared"
	"github.com/urfave/cli/v3"
)

// Chat sends one question to the chat model, or the vision model when --image is given.
//
// With --stream the answer is printed as it arrives.
func (r *Runner) Chat(ctx context.Context, cmd *cli.Command) error {
	question := strings.TrimSpace(cmd.StringArg("question"))
	if question == "" {
		return fmt.Errorf("%w: question is required", shared.ErrMissingArgument)
	}

	req := services.Completion{
		Model:  r.config.Ollama.ChatModel,
		Prompt: fmt.Sprintf("You are Hyde, a friendly assistant inside a music player.\n\nUser: %s\nBot:", question),
	}
	if path := cmd.String("image"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		req.Model = r.config.Ollama.VisionModel
		req.Images = []string{base64.StdEncoding.EncodeToString(data)}
	}

	model := r.completer()
	r.logger.Debug("asking model", "model", req.Model, "images", len(req.Images))

	if !cmd.Bool("stream") {
		answer, err := model.Complete(ctx, req)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", answer)
	}

	if _, err := model.Stream(ctx, req, func(chunk string) error {
		return r.writePlain("%s", chunk)
	}); err != nil {
		return err
	}
	return r.writePlain("\n")
}
