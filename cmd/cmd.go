// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/hyde/internal/formatter"
	"github.com/urfave/cli/v3"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the hyde HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand creates the config file and cache database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and initialize the cache database",
		Action: r.Setup,
		Commands: []*cli.Command{
			{
				Name:  "headers",
				Usage: "Save browser headers for the scrape search provider",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Where to save the headers file",
						Value: "headers.sh",
					},
				},
				Action: r.SetupHeaders,
			},
		},
	}
}

// searchCommand searches for tracks
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search YouTube for tracks",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: append(outputFlags(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of tracks (default: search.default_limit)",
			},
		),
		Action: r.Search,
	}
}

// playlistCommand manages local playlists
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage playlists in the local store",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List playlists",
				Flags:  outputFlags(),
				Action: r.PlaylistList,
			},
			{
				Name:  "show",
				Usage: "Show a playlist and its tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags:  outputFlags(),
				Action: r.PlaylistShow,
			},
			{
				Name:  "create",
				Usage: "Create an empty playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:  "add",
				Usage: "Search for a track and add the best match",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
					&cli.StringArg{Name: "query"},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a track by YouTube id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
					&cli.StringArg{Name: "youtube-id"},
				},
				Action: r.PlaylistRemove,
			},
			{
				Name:  "delete",
				Usage: "Delete a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.PlaylistDelete,
			},
			{
				Name:      "export",
				Usage:     "Export playlists to files (all playlists when none are named)",
				ArgsUsage: "[name...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, txt",
						Value:   formatter.Formats[0],
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: hyde_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers (5-8)",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download cover images for markdown exports",
						Value: true,
					},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}

// chatCommand asks the chat model a question
func chatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Ask the chat model a question",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "question"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "image",
				Usage: "Image file to send to the vision model",
			},
			&cli.BoolFlag{
				Name:  "stream",
				Usage: "Print the answer as it is generated",
			},
		},
		Action: r.Chat,
	}
}

// recommendCommand asks the model for recommendations
func recommendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "Get AI recommendations (or a shuffle list) resolved to YouTube tracks",
		Flags: append(outputFlags(),
			&cli.StringFlag{
				Name:  "song",
				Usage: "Seed song name",
			},
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Seed artist name",
			},
			&cli.BoolFlag{
				Name:  "shuffle",
				Usage: "Build a shuffle list instead of recommendations",
			},
		),
		Action: r.Recommend,
	}
}

// cacheCommand inspects and maintains the search cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and maintain the search cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache entry counts",
				Flags:  outputFlags(),
				Action: r.CacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached search",
				Action: r.CacheClear,
			},
			{
				Name:   "prune",
				Usage:  "Delete expired entries",
				Action: r.CachePrune,
			},
		},
	}
}

// apiCommand handles direct API calls to a running server
func apiCommand(r *Runner) *cli.Command {
	urlFlag := &cli.StringFlag{
		Name:  "url",
		Usage: "Server base URL (default: http://localhost:{server.port})",
	}
	pretty := &cli.BoolFlag{
		Name:  "pretty",
		Usage: "Pretty-print output",
		Value: true,
	}

	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls to a running hyde server",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints the JSON response",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags:  []cli.Flag{urlFlag, pretty},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					urlFlag,
					pretty,
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:  "delete",
				Usage: "Direct DELETE",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags:  []cli.Flag{urlFlag, pretty},
				Action: r.APIDelete,
			},
		},
	}
}
