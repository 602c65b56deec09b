package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/hyde/internal/services"
	"github.com/desertthunder/hyde/internal/shared"
	"github.com/urfave/cli/v3"
)

// client returns the API client for a running server, sending the configured API key.
func (r *Runner) client(cmd *cli.Command) *services.APIService {
	if r.api != nil {
		return r.api
	}
	baseURL := strings.TrimRight(cmd.String("url"), "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", r.config.Server.Port)
	}
	r.api = services.NewAPIService(baseURL, r.config.Server.APIKey, r.httpClient)
	return r.api
}

// APIGet makes a direct GET request to a running server.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	return r.apiCall(ctx, cmd, http.MethodGet, nil)
}

// APIPost makes a direct POST request with a JSON body.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	data := cmd.String("data")
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	var jsonTest any
	if err := json.Unmarshal([]byte(data), &jsonTest); err != nil {
		return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}
	return r.apiCall(ctx, cmd, http.MethodPost, []byte(data))
}

// APIDelete makes a direct DELETE request.
func (r *Runner) APIDelete(ctx context.Context, cmd *cli.Command) error {
	return r.apiCall(ctx, cmd, http.MethodDelete, nil)
}

func (r *Runner) apiCall(ctx context.Context, cmd *cli.Command, method string, data []byte) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	r.logger.Info("API request", "method", method, "path", path)

	resp, err := r.client(cmd).Do(ctx, method, path, data)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(resp.Body)))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}
	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}
