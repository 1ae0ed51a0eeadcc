package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/melon/internal/models"
)

// DefaultPalette is the stylesheet used for terminal summaries.
var DefaultPalette = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	Title lipgloss.Style
	OK    lipgloss.Style
	Err   lipgloss.Style
	Warn  lipgloss.Style
	Help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		Title: NewBold(t).MarginBottom(1),
		OK:    NewBold(s),
		Err:   NewBold(e),
		Warn:  NewStyle(w),
		Help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// RenderExtraction renders the extracted tracklist as a table under the video title.
func (p *Palette) RenderExtraction(ext *models.Extraction) string {
	var b strings.Builder
	b.WriteString(p.Title.Render(fmt.Sprintf("🍉 %s", orUntitled(ext.VideoTitle))))
	b.WriteString("\n")

	if len(ext.Songs) == 0 {
		b.WriteString(p.Warn.Render("No songs found on this page."))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(ext.Songs))
	for i, s := range ext.Songs {
		rows = append(rows, []string{strconv.Itoa(i + 1), s.OffsetLabel, s.Artist, s.Title, string(s.Source)})
	}
	b.WriteString(p.table([]string{"#", "Time", "Artist", "Title", "Source"}, rows))
	b.WriteString("\n")
	b.WriteString(p.Help.Render(fmt.Sprintf("%d songs from %s", len(ext.Songs), ext.SourceURL)))
	b.WriteString("\n")
	return b.String()
}

// RenderSyncResult renders the outcome of one sync: a status line, then every song with its match state.
func (p *Palette) RenderSyncResult(result models.SyncResult) string {
	var b strings.Builder

	switch {
	case result.Failed():
		b.WriteString(p.Err.Render("✗ " + result.Error))
	case result.MatchedCount == 0:
		b.WriteString(p.Warn.Render(fmt.Sprintf("No tracks matched out of %d.", len(result.Matched))))
	case result.PlaylistURL == "":
		b.WriteString(p.Help.Render(fmt.Sprintf("%d/%d tracks matched", result.MatchedCount, len(result.Matched))))
	default:
		b.WriteString(p.OK.Render(fmt.Sprintf("✓ %d/%d tracks added", result.MatchedCount, len(result.Matched))))
	}
	b.WriteString("\n")
	if result.PlaylistURL != "" {
		b.WriteString(result.PlaylistURL + "\n")
	}

	if len(result.Matched) == 0 {
		return b.String()
	}

	rows := make([][]string, 0, len(result.Matched))
	for _, m := range result.Matched {
		state := "✓"
		if !m.Matched() {
			state = "?"
		}
		rows = append(rows, []string{state, m.OffsetLabel, SongLabel(m.CandidateSong), m.RemoteTrackID})
	}
	b.WriteString("\n")
	b.WriteString(p.table([]string{"", "Time", "Song", "Track"}, rows))
	b.WriteString("\n")
	return b.String()
}

// RenderHistory renders recorded sync runs, newest first.
func (p *Palette) RenderHistory(runs []*models.SyncRun) string {
	if len(runs) == 0 {
		return p.Help.Render("No syncs recorded yet.") + "\n"
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = r.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Seq),
			r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			r.VideoTitle,
			fmt.Sprintf("%d/%d", r.MatchedCount, r.CandidateCount),
			r.PlaylistURL,
			status,
		})
	}
	return p.table([]string{"#", "ID", "When", "Video", "Matched", "Playlist", "Status"}, rows) + "\n"
}

// RenderCredentialStatus describes the stored credential at the given instant.
func (p *Palette) RenderCredentialStatus(cred *models.Credential, now time.Time) string {
	switch {
	case cred == nil:
		return p.Warn.Render("Not logged in. Run `melon auth login`.")
	case cred.Usable(now):
		left := time.UnixMilli(cred.ExpiresAt).Sub(now).Round(time.Second)
		return p.OK.Render(fmt.Sprintf("Logged in, token valid for %s.", left))
	case cred.RefreshToken != "":
		return p.Warn.Render("Token expired; it will be refreshed on the next sync.")
	default:
		return p.Err.Render("Token expired and no refresh token is stored. Run `melon auth login`.")
	}
}

func (p *Palette) table(headers []string, rows [][]string) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.Help).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		String()
}

func orUntitled(title string) string {
	if title == "" {
		return "Untitled video"
	}
	return title
}
