package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/repositories"
	"github.com/desertthunder/hyde/internal/services"
	"github.com/desertthunder/hyde/internal/shared"
	tu "github.com/desertthunder/hyde/internal/testing"
)

type fakeModel struct {
	answer string
	chunks []string
	err    error

	mu       sync.Mutex
	requests []services.Completion
}

func (m *fakeModel) Complete(ctx context.Context, req services.Completion) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.answer, m.err
}

func (m *fakeModel) Stream(ctx context.Context, req services.Completion, emit func(string) error) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	for _, c := range m.chunks {
		if err := emit(c); err != nil {
			return "", err
		}
	}
	return strings.Join(m.chunks, ""), nil
}

// writeConfig writes a config.toml into dir with the store and database kept inside it.
func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("[store]\npath = %q\n\n[database]\npath = %q\n\n%s",
		filepath.Join(dir, "playlists.json"), filepath.Join(dir, "hyde.db"), extra)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// run executes the CLI against r with a config in dir and no .env file.
func run(t *testing.T, r *Runner, dir string, args ...string) error {
	t.Helper()
	argv := []string{"hyde", "--env", filepath.Join(dir, ".env"), "--config", filepath.Join(dir, "config.toml")}
	return newApp(r).Run(context.Background(), append(argv, args...))
}

func quietRunner(out io.Writer, opts RunnerOpts) *Runner {
	opts.Output = out
	opts.Logger = shared.NewLogger(io.Discard)
	return NewRunner(opts)
}

var rickroll = []models.RawResult{{ExternalID: "dQw4w9WgXcQ", RawTitle: "Rick Astley - Never Gonna Give You Up", DurationText: "3:33"}}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			search := &tu.MockSearchProvider{}
			api := &services.APIService{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				API:        api,
				Search:     search,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
			if runner.search != search {
				t.Error("expected search to be set")
			}
		})

		t.Run("with nil values uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("writePlainln surrounds text with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("done"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "\ndone\n" {
				t.Errorf("expected %q, got %q", "\ndone\n", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		expected := []string{"serve", "setup", "search", "playlist", "chat", "recommend", "cache", "api"}
		if len(commands) != len(expected) {
			t.Fatalf("expected %d commands, got %d", len(expected), len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if cmd.Name != expected[i] {
				t.Errorf("expected command %q at %d, got %q", expected[i], i, cmd.Name)
			}
			if cmd.Usage == "" {
				t.Errorf("expected usage for %q", cmd.Name)
			}
		}
	})
}

func TestBefore(t *testing.T) {
	t.Run("loads the config file", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "[server]\nport = 6001\n")
		runner := quietRunner(&bytes.Buffer{}, RunnerOpts{})

		if err := run(t, runner, dir, "playlist", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if runner.config.Server.Port != 6001 {
			t.Errorf("expected port 6001, got %d", runner.config.Server.Port)
		}
		if runner.configPath != filepath.Join(dir, "config.toml") {
			t.Errorf("expected config path to be recorded, got %s", runner.configPath)
		}
	})

	t.Run("explicit missing config is an error", func(t *testing.T) {
		dir := t.TempDir()
		runner := quietRunner(&bytes.Buffer{}, RunnerOpts{})

		err := run(t, runner, dir, "playlist", "list")
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("invalid config fails validation", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "[cache]\nbackend = \"memcached\"\n")
		runner := quietRunner(&bytes.Buffer{}, RunnerOpts{})

		err := run(t, runner, dir, "playlist", "list")
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "")
		runner := quietRunner(&bytes.Buffer{}, RunnerOpts{})

		err := newApp(runner).Run(context.Background(), []string{
			"hyde", "--env", filepath.Join(dir, ".env"), "--config", filepath.Join(dir, "config.toml"),
			"--log-level", "chatty", "playlist", "list",
		})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("loadConfig falls back to defaults when not required", func(t *testing.T) {
		config, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"), false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if config.Server.Port != shared.DefaultConfig().Server.Port {
			t.Errorf("expected default port, got %d", config.Server.Port)
		}
	})
}

func TestPlaylistCommands(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "")
	search := &tu.MockSearchProvider{Default: rickroll}

	exec := func(t *testing.T, args ...string) (string, error) {
		t.Helper()
		out := &bytes.Buffer{}
		err := run(t, quietRunner(out, RunnerOpts{Search: search}), dir, args...)
		return out.String(), err
	}

	t.Run("create", func(t *testing.T) {
		out, err := exec(t, "playlist", "create", "Road Trip")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "Created playlist Road Trip") {
			t.Errorf("expected confirmation, got %q", out)
		}

		if _, err := exec(t, "playlist", "create", "Road Trip"); !errors.Is(err, shared.ErrPlaylistExists) {
			t.Errorf("expected ErrPlaylistExists, got %v", err)
		}
	})

	t.Run("create requires a name", func(t *testing.T) {
		if _, err := exec(t, "playlist", "create"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("add searches and stores the top result", func(t *testing.T) {
		out, err := exec(t, "playlist", "add", "Road Trip", "never gonna give you up")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "Added") || !strings.Contains(out, "dQw4w9WgXcQ") {
			t.Errorf("expected added track in output, got %q", out)
		}

		out, err = exec(t, "playlist", "add", "Road Trip", "never gonna give you up")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "already in Road Trip") {
			t.Errorf("expected duplicate notice, got %q", out)
		}
	})

	t.Run("add to missing playlist", func(t *testing.T) {
		if _, err := exec(t, "playlist", "add", "Nope", "anything"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("show as json", func(t *testing.T) {
		out, err := exec(t, "playlist", "show", "--json", "--pretty=false", "Road Trip")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var p models.PlaylistRecord
		if err := json.Unmarshal([]byte(out), &p); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", out, err)
		}
		if p.Name != "Road Trip" || len(p.Tracks) != 1 {
			t.Fatalf("expected Road Trip with 1 track, got %+v", p)
		}
		if p.Tracks[0].ExternalID != "dQw4w9WgXcQ" {
			t.Errorf("expected dQw4w9WgXcQ, got %s", p.Tracks[0].ExternalID)
		}
	})

	t.Run("list", func(t *testing.T) {
		out, err := exec(t, "playlist", "list")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "Playlists (1)") || !strings.Contains(out, "Road Trip") {
			t.Errorf("expected playlist listing, got %q", out)
		}
	})

	t.Run("export", func(t *testing.T) {
		exportDir := filepath.Join(dir, "export")
		out, err := exec(t, "playlist", "export", "--format", "csv", "--output", exportDir, "--covers=false")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "Exported 1/1 playlists") {
			t.Errorf("expected export summary, got %q", out)
		}
		tu.AssertDirExists(t, exportDir)

		entries, err := os.ReadDir(exportDir)
		if err != nil {
			t.Fatalf("failed to read export dir: %v", err)
		}
		var csvFiles int
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".csv") {
				csvFiles++
			}
		}
		if csvFiles != 1 {
			t.Errorf("expected 1 csv file, got %d", csvFiles)
		}
	})

	t.Run("remove", func(t *testing.T) {
		out, err := exec(t, "playlist", "remove", "Road Trip", "dQw4w9WgXcQ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "Removed dQw4w9WgXcQ") {
			t.Errorf("expected removal confirmation, got %q", out)
		}

		out, err = exec(t, "playlist", "remove", "Road Trip", "dQw4w9WgXcQ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "Track not in playlist") {
			t.Errorf("expected not-in-playlist notice, got %q", out)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if _, err := exec(t, "playlist", "delete", "Road Trip"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := exec(t, "playlist", "show", "Road Trip"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}

		store, err := repositories.OpenPlaylistStore(filepath.Join(dir, "playlists.json"), repositories.StoreOptions{})
		if err != nil {
			t.Fatalf("failed to reopen store: %v", err)
		}
		if store.Len() != 0 {
			t.Errorf("expected empty store on disk, got %d playlists", store.Len())
		}
	})

	t.Run("export with nothing to export", func(t *testing.T) {
		if _, err := exec(t, "playlist", "export"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestSearch(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[search]\ndefault_limit = 3\n")

	t.Run("prints tracks as json", func(t *testing.T) {
		search := &tu.MockSearchProvider{Default: rickroll}
		out := &bytes.Buffer{}

		if err := run(t, quietRunner(out, RunnerOpts{Search: search}), dir, "search", "--json", "never gonna give you up"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var tracks []models.Track
		if err := json.Unmarshal(out.Bytes(), &tracks); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", out.String(), err)
		}
		if len(tracks) != 1 {
			t.Fatalf("expected 1 track, got %d", len(tracks))
		}
		if tracks[0].Name != "Never Gonna Give You Up" || tracks[0].PrimaryArtist() != "Rick Astley" {
			t.Errorf("expected parsed title, got %+v", tracks[0])
		}
		if q := search.Queries(); len(q) != 1 || q[0] != "never gonna give you up" {
			t.Errorf("expected query to be forwarded, got %v", q)
		}
	})

	t.Run("plain output", func(t *testing.T) {
		search := &tu.MockSearchProvider{Default: rickroll}
		out := &bytes.Buffer{}

		if err := run(t, quietRunner(out, RunnerOpts{Search: search}), dir, "search", "rick"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out.String(), `Results for "rick"`) || !strings.Contains(out.String(), "dQw4w9WgXcQ") {
			t.Errorf("expected results listing, got %q", out.String())
		}
	})

	t.Run("provider errors are wrapped", func(t *testing.T) {
		search := &tu.MockSearchProvider{Err: shared.ErrUpstream}

		err := run(t, quietRunner(&bytes.Buffer{}, RunnerOpts{Search: search}), dir, "search", "rick")
		if !errors.Is(err, shared.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
	})

	t.Run("query is required", func(t *testing.T) {
		err := run(t, quietRunner(&bytes.Buffer{}, RunnerOpts{Search: &tu.MockSearchProvider{}}), dir, "search")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestRecommend(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "")

	t.Run("resolves model suggestions", func(t *testing.T) {
		model := &fakeModel{answer: `[{"song":"Never Gonna Give You Up","artist":"Rick Astley"}]`}
		out := &bytes.Buffer{}
		runner := quietRunner(out, RunnerOpts{Search: &tu.MockSearchProvider{Default: rickroll}, Chat: model})

		if err := run(t, runner, dir, "recommend", "--json", "--song", "Take On Me", "--artist", "a-ha"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var tracks []models.Track
		if err := json.Unmarshal(out.Bytes(), &tracks); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", out.String(), err)
		}
		if len(tracks) != 1 || tracks[0].ExternalID != "dQw4w9WgXcQ" {
			t.Fatalf("expected resolved track, got %+v", tracks)
		}
		if len(model.requests) != 1 || model.requests[0].Model != shared.DefaultConfig().Ollama.RecommendModel {
			t.Errorf("expected one request to the recommend model, got %+v", model.requests)
		}
		if !strings.Contains(model.requests[0].Prompt, "Take On Me") {
			t.Errorf("expected seed in prompt, got %q", model.requests[0].Prompt)
		}
	})

	t.Run("shuffle uses the shuffle model", func(t *testing.T) {
		model := &fakeModel{answer: `[{"song":"Never Gonna Give You Up","artist":"Rick Astley"}]`}
		out := &bytes.Buffer{}
		runner := quietRunner(out, RunnerOpts{Search: &tu.MockSearchProvider{Default: rickroll}, Chat: model})

		if err := run(t, runner, dir, "recommend", "--shuffle"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if model.requests[0].Model != shared.DefaultConfig().Ollama.ShuffleModel {
			t.Errorf("expected shuffle model, got %s", model.requests[0].Model)
		}
		if !strings.Contains(out.String(), "Shuffle") {
			t.Errorf("expected shuffle title, got %q", out.String())
		}
	})

	t.Run("falls back to the catalog when the model fails", func(t *testing.T) {
		model := &fakeModel{err: shared.ErrServiceUnavailable}
		out := &bytes.Buffer{}
		runner := quietRunner(out, RunnerOpts{Search: &tu.MockSearchProvider{}, Chat: model})

		if err := run(t, runner, dir, "recommend", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		catalog, err := services.LoadCatalog()
		if err != nil {
			t.Fatalf("failed to load catalog: %v", err)
		}
		var tracks []models.Track
		if err := json.Unmarshal(out.Bytes(), &tracks); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", out.String(), err)
		}
		if len(tracks) != len(catalog.FallbackRecommendations()) {
			t.Errorf("expected %d fallback tracks, got %d", len(catalog.FallbackRecommendations()), len(tracks))
		}
	})
}

func TestChat(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "")

	t.Run("prints the answer", func(t *testing.T) {
		model := &fakeModel{answer: "Try some synthwave."}
		out := &bytes.Buffer{}

		if err := run(t, quietRunner(out, RunnerOpts{Chat: model}), dir, "chat", "what should I play?"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.String() != "Try some synthwave.\n" {
			t.Errorf("expected answer, got %q", out.String())
		}
		if model.requests[0].Model != shared.DefaultConfig().Ollama.ChatModel {
			t.Errorf("expected chat model, got %s", model.requests[0].Model)
		}
		if !strings.Contains(model.requests[0].Prompt, "what should I play?") {
			t.Errorf("expected question in prompt, got %q", model.requests[0].Prompt)
		}
	})

	t.Run("streams chunks", func(t *testing.T) {
		model := &fakeModel{chunks: []string{"Hel", "lo", "!"}}
		out := &bytes.Buffer{}

		if err := run(t, quietRunner(out, RunnerOpts{Chat: model}), dir, "chat", "--stream", "hi"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.String() != "Hello!\n" {
			t.Errorf("expected streamed answer, got %q", out.String())
		}
	})

	t.Run("image goes to the vision model", func(t *testing.T) {
		image := filepath.Join(dir, "cover.png")
		if err := os.WriteFile(image, []byte("png"), 0644); err != nil {
			t.Fatalf("failed to write image: %v", err)
		}
		model := &fakeModel{answer: "An album cover."}

		if err := run(t, quietRunner(&bytes.Buffer{}, RunnerOpts{Chat: model}), dir, "chat", "--image", image, "what is this?"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		req := model.requests[0]
		if req.Model != shared.DefaultConfig().Ollama.VisionModel {
			t.Errorf("expected vision model, got %s", req.Model)
		}
		if len(req.Images) != 1 || req.Images[0] != "cG5n" {
			t.Errorf("expected base64 image, got %v", req.Images)
		}
	})

	t.Run("question is required", func(t *testing.T) {
		err := run(t, quietRunner(&bytes.Buffer{}, RunnerOpts{Chat: &fakeModel{}}), dir, "chat")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("initializes the database", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "")
		out := &bytes.Buffer{}

		if err := run(t, quietRunner(out, RunnerOpts{}), dir, "setup"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "hyde.db"))
		if !strings.Contains(out.String(), "Database ready") || !strings.Contains(out.String(), "applied") {
			t.Errorf("expected migration report, got %q", out.String())
		}
	})

	t.Run("creates a missing config file", func(t *testing.T) {
		dir := t.TempDir()
		wd := tu.MustGetwd(t)
		tu.MustChdir(t, dir)
		defer tu.MustChdir(t, wd)

		out := &bytes.Buffer{}
		if err := run(t, quietRunner(out, RunnerOpts{}), dir, "setup"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
		if _, err := shared.LoadConfig(filepath.Join(dir, "config.toml")); err != nil {
			t.Errorf("expected generated config to load, got %v", err)
		}
	})

	t.Run("headers", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "")
		output := filepath.Join(dir, "auth", "headers.sh")
		curl := `curl 'https://music.youtube.com/youtubei/v1/search' -H 'Cookie: SID=abc' -H 'User-Agent: Mozilla/5.0'`
		out := &bytes.Buffer{}

		if err := run(t, quietRunner(out, RunnerOpts{}), dir, "setup", "headers", "--curl", curl, "--output", output); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := tu.MustReadFile(t, output); got != curl {
			t.Errorf("expected saved cURL command, got %q", got)
		}
		info, err := os.Stat(output)
		if err != nil {
			t.Fatalf("failed to stat headers file: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
		}
		if !strings.Contains(out.String(), "Saved 2 headers") {
			t.Errorf("expected header count, got %q", out.String())
		}
	})

	t.Run("headers input errors", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "")
		curlFile := filepath.Join(dir, "curl.sh")
		if err := os.WriteFile(curlFile, []byte("curl https://example.com -H 'A: b'"), 0644); err != nil {
			t.Fatalf("failed to write curl file: %v", err)
		}

		tt := []struct {
			name     string
			args     []string
			expected error
		}{
			{name: "neither source", args: nil, expected: shared.ErrMissingArgument},
			{name: "both sources", args: []string{"--curl", "curl -H 'A: b' x", "--curl-file", curlFile}, expected: shared.ErrInvalidArgument},
		}
		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				args := append([]string{"setup", "headers", "--output", filepath.Join(dir, "h.sh")}, tc.args...)
				err := run(t, quietRunner(&bytes.Buffer{}, RunnerOpts{}), dir, args...)
				if !errors.Is(err, tc.expected) {
					t.Errorf("expected %v, got %v", tc.expected, err)
				}
			})
		}

		t.Run("unparseable command", func(t *testing.T) {
			err := run(t, quietRunner(&bytes.Buffer{}, RunnerOpts{}), dir, "setup", "headers", "--curl", "curl https://example.com")
			if err == nil || !strings.Contains(err.Error(), "failed to parse cURL command") {
				t.Errorf("expected parse error, got %v", err)
			}
		})
	})
}

func TestCacheCommands(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[cache]\nbackend = \"sqlite\"\n")

	t.Run("stats", func(t *testing.T) {
		out := &bytes.Buffer{}
		if err := run(t, quietRunner(out, RunnerOpts{}), dir, "cache", "stats", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var stats repositories.CacheStats
		if err := json.Unmarshal(out.Bytes(), &stats); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", out.String(), err)
		}
		if stats.Entries != 0 {
			t.Errorf("expected empty cache, got %d entries", stats.Entries)
		}
	})

	t.Run("clear", func(t *testing.T) {
		out := &bytes.Buffer{}
		if err := run(t, quietRunner(out, RunnerOpts{}), dir, "cache", "clear"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out.String(), "Removed 0 cached searches") {
			t.Errorf("expected clear summary, got %q", out.String())
		}
	})

	t.Run("prune", func(t *testing.T) {
		out := &bytes.Buffer{}
		if err := run(t, quietRunner(out, RunnerOpts{}), dir, "cache", "prune"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out.String(), "Pruned 0 expired entries") {
			t.Errorf("expected prune summary, got %q", out.String())
		}
	})

	t.Run("memory backend has nothing persistent", func(t *testing.T) {
		memDir := t.TempDir()
		writeConfig(t, memDir, "[cache]\nbackend = \"memory\"\n")
		out := &bytes.Buffer{}

		if err := run(t, quietRunner(out, RunnerOpts{}), memDir, "cache", "stats"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out.String(), "No persistent statistics") {
			t.Errorf("expected memory backend notice, got %q", out.String())
		}
	})
}

func TestAPICommands(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[server]\napi_key = \"secret\"\n")

	var mu sync.Mutex
	var seen []*http.Request
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, r.Clone(context.Background()))
		bodies = append(bodies, string(body))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status":"healthy"}`))
		case "/playlist/create":
			w.Write([]byte(`{"success":true}`))
		case "/playlist/Missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"playlist not found"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not found"}`))
		}
	}))
	defer server.Close()

	exec := func(t *testing.T, args ...string) (string, error) {
		t.Helper()
		out := &bytes.Buffer{}
		err := run(t, quietRunner(out, RunnerOpts{}), dir, args...)
		return out.String(), err
	}

	t.Run("get", func(t *testing.T) {
		out, err := exec(t, "api", "get", "--url", server.URL, "--pretty=false", "health")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out != `{"status":"healthy"}`+"\n" {
			t.Errorf("expected health body, got %q", out)
		}

		mu.Lock()
		last := seen[len(seen)-1]
		mu.Unlock()
		if last.URL.Path != "/health" {
			t.Errorf("expected leading slash to be added, got %s", last.URL.Path)
		}
		if last.Header.Get(services.APIKeyHeader) != "secret" {
			t.Errorf("expected api key header, got %q", last.Header.Get(services.APIKeyHeader))
		}
	})

	t.Run("post", func(t *testing.T) {
		if _, err := exec(t, "api", "post", "--url", server.URL, "-d", `{"name":"Mix"}`, "/playlist/create"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		mu.Lock()
		last, body := seen[len(seen)-1], bodies[len(bodies)-1]
		mu.Unlock()
		if last.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", last.Method)
		}
		if body != `{"name":"Mix"}` {
			t.Errorf("expected body to be forwarded, got %q", body)
		}
	})

	t.Run("post rejects invalid json", func(t *testing.T) {
		if _, err := exec(t, "api", "post", "--url", server.URL, "-d", "{nope", "/playlist/create"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("delete reports error statuses", func(t *testing.T) {
		_, err := exec(t, "api", "delete", "--url", server.URL, "/playlist/Missing")
		if !errors.Is(err, shared.ErrUpstream) {
			t.Fatalf("expected ErrUpstream, got %v", err)
		}
		if !strings.Contains(err.Error(), "status 404") {
			t.Errorf("expected status in error, got %v", err)
		}
	})

	t.Run("path is required", func(t *testing.T) {
		if _, err := exec(t, "api", "get", "--url", server.URL); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}
