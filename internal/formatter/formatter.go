// package formatter renders previews, playlist listings and materialization results as plain text, Markdown, CSV and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/monthlify/internal/models"
)

// CoverRenderer renders the JPEG cover of a YYYY-MM month.
type CoverRenderer interface {
	Render(month string) ([]byte, error)
}

// PreviewToText lists each month with its tracks.
func PreviewToText(source string, partitions []models.PartitionPreview) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", source)
	if len(partitions) == 0 {
		buf.WriteString("No songs to sort\n")
		return buf.Bytes()
	}
	fmt.Fprintf(&buf, "Months: %d\n", len(partitions))

	for _, p := range partitions {
		fmt.Fprintf(&buf, "\n%s (%s)\n", p.Name, songs(p.TrackCount()))
		for i, t := range p.Tracks {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, t.Label())
		}
	}
	return buf.Bytes()
}

// PreviewToMarkdown renders the preview as Markdown. covers maps a partition id to an image path; a month
// without one gets no image.
func PreviewToMarkdown(source string, partitions []models.PartitionPreview, covers map[string]string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", source)
	if len(partitions) == 0 {
		buf.WriteString("No songs to sort\n")
		return buf.Bytes()
	}

	tracks := 0
	for _, p := range partitions {
		tracks += p.TrackCount()
	}
	fmt.Fprintf(&buf, "**Months**: %d\n", len(partitions))
	fmt.Fprintf(&buf, "**Tracks**: %d\n", tracks)

	for _, p := range partitions {
		fmt.Fprintf(&buf, "\n## %s\n\n", p.Name)
		if path, ok := covers[p.ID]; ok && path != "" {
			fmt.Fprintf(&buf, "![%s](%s)\n\n", p.Name, path)
		}
		for i, t := range p.Tracks {
			fmt.Fprintf(&buf, "%d. %s", i+1, t.Label())
			if !t.AddedAt.IsZero() {
				fmt.Fprintf(&buf, " [%s]", t.AddedAt.Format(time.DateOnly))
			}
			buf.WriteString("\n")
		}
	}
	return buf.Bytes()
}

// PreviewToCSV writes one row per track with columns: Month, Position, Name, Artists, Added, URI
func PreviewToCSV(partitions []models.PartitionPreview) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Month", "Position", "Name", "Artists", "Added", "URI"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range partitions {
		for i, t := range p.Tracks {
			added := ""
			if !t.AddedAt.IsZero() {
				added = t.AddedAt.UTC().Format(time.RFC3339)
			}
			record := []string{p.ID, strconv.Itoa(i + 1), t.Name, t.Artists, added, t.URI}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ResultsToText lists newly created playlists before updated ones.
func ResultsToText(results []models.MaterializedPlaylist) []byte {
	var buf bytes.Buffer

	if len(results) == 0 {
		buf.WriteString("No playlists found.\n")
		return buf.Bytes()
	}

	created, updated := models.SplitByAction(results)
	section := func(heading string, rs []models.MaterializedPlaylist) {
		if len(rs) == 0 {
			return
		}
		fmt.Fprintf(&buf, "%s:\n", heading)
		for _, r := range rs {
			fmt.Fprintf(&buf, "  %s  %s\n", r.Name, r.URL)
		}
	}
	section("Newly Created", created)
	if len(created) > 0 && len(updated) > 0 {
		buf.WriteString("\n")
	}
	section("Updated", updated)
	return buf.Bytes()
}

// PlaylistsToText renders one playlist per line: id, name, owner and track count.
func PlaylistsToText(playlists []models.SourcePlaylist) []byte {
	var buf bytes.Buffer

	if len(playlists) == 0 {
		buf.WriteString("No playlists found.\n")
		return buf.Bytes()
	}
	for _, pl := range playlists {
		fmt.Fprintf(&buf, "%-24s %s (%s, %s)\n", pl.ID, pl.Name, pl.Owner, songs(pl.TrackCount))
	}
	return buf.Bytes()
}

// ToJSON marshals v, indented when pretty is set.
func ToJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// MarkdownExportResult contains information about files created by WriteMarkdownPreview
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Covers    []string
}

// WriteMarkdownPreview writes the preview to {dir}/README.md.
//
// When covers is set, each month's cover is rendered to {dir}/{YYYY-MM}.jpg and linked from the Markdown.
// A cover that fails to render is skipped.
func WriteMarkdownPreview(source string, partitions []models.PartitionPreview, outputDir string, covers CoverRenderer) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = "preview"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	links := map[string]string{}
	if covers != nil {
		for _, p := range partitions {
			data, err := covers.Render(p.ID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to render cover for %s: %v\n", p.Name, err)
				continue
			}

			name := p.ID + ".jpg"
			path := filepath.Join(outputDir, name)
			if err := os.WriteFile(path, data, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover for %s: %v\n", p.Name, err)
				continue
			}
			links[p.ID] = name
			result.Covers = append(result.Covers, path)
			result.Files = append(result.Files, path)
		}
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, PreviewToMarkdown(source, partitions, links), 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteCSVPreview writes the preview as CSV. Defaults to preview_tracks.csv as the filename.
func WriteCSVPreview(partitions []models.PartitionPreview, path string) (string, error) {
	if path == "" {
		path = "preview_tracks.csv"
	}

	data, err := PreviewToCSV(partitions)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}
	return path, nil
}

func songs(n int) string {
	if n == 1 {
		return "1 song"
	}
	return fmt.Sprintf("%d songs", n)
}
