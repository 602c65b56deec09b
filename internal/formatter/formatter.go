// package formatter provides functions to export playlists to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hyde/internal/models"
)

// Formats lists the accepted export format names.
var Formats = []string{"json", "csv", "markdown", "txt"}

// ExportToCSV converts a playlist to CSV with columns: ID, Name, Artists, Album, Duration, YouTube ID, Source
func ExportToCSV(p *models.PlaylistRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artists", "Album", "Duration", "YouTube ID", "Source"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range p.Tracks {
		record := []string{
			track.ID,
			track.Name,
			strings.Join(track.Artists, "; "),
			track.Album,
			strconv.Itoa(track.DurationMS),
			track.ExternalID,
			track.Source,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a playlist to Markdown with an optional cover image and watch links.
func ExportToMarkdown(p *models.PlaylistRecord, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", p.Name))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(p.Tracks)))
	buf.WriteString(fmt.Sprintf("**Duration**: %s\n", FormatDuration(TotalDuration(p))))
	buf.WriteString(fmt.Sprintf("**Created**: %s\n\n", CreatedTime(p).Format(time.RFC3339)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range p.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		title := track.Name
		if track.ExternalID != "" {
			title = fmt.Sprintf("[%s](%s)", track.Name, WatchURL(track.ExternalID))
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n",
			i+1, strings.Join(track.Artists, ", "), title, albumPart, FormatDuration(track.DurationMS)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text format
func ExportToText(p *models.PlaylistRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", p.Name))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(p.Tracks)))

	for i, track := range p.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.PrimaryArtist(), track.Name))
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the playlist record as indented JSON, the same shape the store persists.
func ExportToJSON(p *models.PlaylistRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to encode playlist: %w", err)
	}
	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(p *models.PlaylistRecord) ([]byte, error) {
	summary := models.PlaylistSummary{
		Name:       p.Name,
		TrackCount: len(p.Tracks),
		CreatedAt:  p.CreatedAt,
		Cover:      p.Cover,
	}
	return json.MarshalIndent(summary, "", "  ")
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to the playlist slug as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(p *models.PlaylistRecord, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = Slug(p.Name)
	}

	csvData, err := ExportToCSV(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a playlist to Markdown format in a dedicated directory.
//
// Directory name defaults to the playlist slug.
// The imageURL parameter is optional - if provided, attempts to download the cover image.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(ctx context.Context, p *models.PlaylistRecord, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = Slug(p.Name)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(ctx, imageURL)
		if err != nil {
			log.Warn("failed to download cover image", "playlist", p.Name, "error", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				log.Warn("failed to save cover image", "playlist", p.Name, "error", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(p, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {slug}_tracks.txt as the filename.
func WriteTextExport(p *models.PlaylistRecord, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", Slug(p.Name))
	}

	textData, err := ExportToText(p)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the playlist record as JSON. Defaults to {slug}.json as the filename.
func WriteJSONExport(p *models.PlaylistRecord, path string) (string, error) {
	if path == "" {
		path = Slug(p.Name) + ".json"
	}

	data, err := ExportToJSON(p)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}
	return path, nil
}

// Slug makes a playlist name safe to use as a file name: lower case letters and digits joined by single dashes.
func Slug(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		return "playlist"
	}
	return slug
}

// FormatDuration renders milliseconds as m:ss, or h:mm:ss for an hour or more.
func FormatDuration(ms int) string {
	total := ms / 1000
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// TotalDuration sums track durations in milliseconds.
func TotalDuration(p *models.PlaylistRecord) int {
	total := 0
	for _, t := range p.Tracks {
		total += t.DurationMS
	}
	return total
}

// CreatedTime converts the fractional epoch seconds stored on a playlist to a [time.Time] in UTC.
func CreatedTime(p *models.PlaylistRecord) time.Time {
	sec := int64(p.CreatedAt)
	nsec := int64((p.CreatedAt - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// WatchURL returns the YouTube watch page for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
