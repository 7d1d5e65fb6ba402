// Package output renders DevDocs data for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/colthorp/devdocs-cli-go/internal/api"
	"github.com/colthorp/devdocs-cli-go/internal/core"
)

// Column widths for list views.
const (
	titleWidth   = 48
	previewWidth = 72
)

// now is replaced in tests.
var now = time.Now

// PrintJSON prints v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func ago(ts api.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return humanize.RelTime(ts.Time, now(), "ago", "from now")
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// PrintSolutions prints one row per solution.
func PrintSolutions(w io.Writer, sols []api.Solution) error {
	if len(sols) == 0 {
		_, err := fmt.Fprintln(w, "No solutions found.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tLANGUAGE\tTAGS\tCREATED")
	for _, s := range sols {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, core.Truncate(s.Title, titleWidth), s.Language, strings.Join(s.Tags, ","), ago(s.CreatedAt))
	}
	return tw.Flush()
}

// PrintSolutionPage prints a page of solutions followed by its position.
func PrintSolutionPage(w io.Writer, page *api.SolutionList) error {
	if err := PrintSolutions(w, page.Solutions); err != nil {
		return err
	}
	if page.TotalPages > 0 {
		_, err := fmt.Fprintf(w, "\nPage %d of %d (%s solutions)\n", page.Page, page.TotalPages, humanize.Comma(int64(page.Total)))
		return err
	}
	return nil
}

// PrintSolution prints a single solution in markdown.
func PrintSolution(w io.Writer, s *api.Solution) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Title)
	fmt.Fprintf(&b, "- id: %s\n", s.ID)
	fmt.Fprintf(&b, "- language: %s\n", s.Language)
	if len(s.Tags) > 0 {
		fmt.Fprintf(&b, "- tags: %s\n", strings.Join(s.Tags, ", "))
	}
	fmt.Fprintf(&b, "- created: %s\n", ago(s.CreatedAt))
	if !s.UpdatedAt.IsZero() && !s.UpdatedAt.Equal(s.CreatedAt.Time) {
		fmt.Fprintf(&b, "- updated: %s\n", ago(s.UpdatedAt))
	}
	if s.IsArchived {
		b.WriteString("- archived\n")
	}
	fmt.Fprintf(&b, "\n%s\n\n", s.Description)
	fmt.Fprintf(&b, "```%s\n%s\n```\n", s.Language, strings.TrimRight(s.Code, "\n"))
	_, err := io.WriteString(w, b.String())
	return err
}

// PrintSearchResults prints ranked matches in server order.
func PrintSearchResults(w io.Writer, query string, results []api.SearchResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintf(w, "No results for %q.\n", query)
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "RANK\tSCORE\tID\tTITLE\tPREVIEW")
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%.0f%%\t%s\t%s\t%s\n",
			r.Rank, r.Similarity*100, r.Solution.ID,
			core.Truncate(r.Solution.Title, titleWidth),
			core.Truncate(core.FirstLine(r.Solution.Description), previewWidth))
	}
	return tw.Flush()
}

// PrintSuggestions prints one completion per line.
func PrintSuggestions(w io.Writer, sugs []api.Suggestion) error {
	for _, s := range sugs {
		if _, err := fmt.Fprintln(w, s.Text); err != nil {
			return err
		}
	}
	return nil
}

// PrintStats prints the dashboard counters and language breakdown.
func PrintStats(w io.Writer, st *api.DashboardStats) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Solutions\t%s\n", humanize.Comma(int64(st.TotalSolutions)))
	fmt.Fprintf(tw, "Languages\t%d\n", st.TotalLanguages)
	fmt.Fprintf(tw, "Unique tags\t%d\n", st.UniqueTags)
	fmt.Fprintf(tw, "Searches\t%s\n", humanize.Comma(int64(st.TotalSearches)))
	fmt.Fprintf(tw, "Avg. similarity\t%.0f%%\n", st.AverageSimilarity*100)
	if st.MostRecentSolution != nil {
		fmt.Fprintf(tw, "Last added\t%s\n", ago(*st.MostRecentSolution))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(st.LanguageBreakdown) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "LANGUAGE\tCOUNT")
	for _, lc := range st.LanguageBreakdown {
		fmt.Fprintf(tw, "%s\t%d\n", lc.Language, lc.Count)
	}
	return tw.Flush()
}

// PrintTags prints tags with their usage counts.
func PrintTags(w io.Writer, tags []api.PopularTag) error {
	if len(tags) == 0 {
		_, err := fmt.Fprintln(w, "No tags yet.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "TAG\tCOUNT")
	for _, t := range tags {
		fmt.Fprintf(tw, "%s\t%d\n", t.Tag, t.Count)
	}
	return tw.Flush()
}

// PrintBookmarks prints the bookmarked solution ids.
func PrintBookmarks(w io.Writer, bms []api.Bookmark) error {
	if len(bms) == 0 {
		_, err := fmt.Fprintln(w, "No bookmarks.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "SOLUTION\tBOOKMARKED")
	for _, b := range bms {
		fmt.Fprintf(tw, "%s\t%s\n", b.SolutionID, ago(b.CreatedAt))
	}
	return tw.Flush()
}

// PrintSearches prints the recent search history, newest first.
func PrintSearches(w io.Writer, searches []string) error {
	if len(searches) == 0 {
		_, err := fmt.Fprintln(w, "No recent searches.")
		return err
	}
	for i, q := range searches {
		if _, err := fmt.Fprintf(w, "%d. %s\n", i+1, q); err != nil {
			return err
		}
	}
	return nil
}

// PrintProfile prints the signed-in user's profile as aligned fields.
func PrintProfile(w io.Writer, p *api.UserProfile) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Email\t%s\n", p.Email)
	printProfileFields(tw, p.FullName, p.Bio, p.GithubUsername, p.TwitterUsername, p.WebsiteURL)
	fmt.Fprintf(tw, "Theme\t%s\n", p.Theme)
	fmt.Fprintf(tw, "Language\t%s\n", p.Language)
	fmt.Fprintf(tw, "Member since\t%s\n", ago(p.CreatedAt))
	if p.LastLoginAt != nil {
		fmt.Fprintf(tw, "Last login\t%s\n", ago(*p.LastLoginAt))
	}
	fmt.Fprintf(tw, "ID\t%s\n", p.ID)
	return tw.Flush()
}

// PrintPublicProfile prints what anyone may see about a user.
func PrintPublicProfile(w io.Writer, p *api.PublicProfile) error {
	tw := newTable(w)
	printProfileFields(tw, p.FullName, p.Bio, p.GithubUsername, p.TwitterUsername, p.WebsiteURL)
	fmt.Fprintf(tw, "Member since\t%s\n", ago(p.CreatedAt))
	fmt.Fprintf(tw, "ID\t%s\n", p.ID)
	return tw.Flush()
}

// printProfileFields writes the optional fields that are set.
func printProfileFields(w io.Writer, name, bio, github, twitter, website string) {
	rows := [][2]string{
		{"Name", name},
		{"Bio", core.Truncate(bio, previewWidth)},
		{"GitHub", github},
		{"Twitter", twitter},
		{"Website", website},
	}
	for _, r := range rows {
		if r[1] != "" {
			fmt.Fprintf(w, "%s\t%s\n", r[0], r[1])
		}
	}
}

// PrintAuthStatus prints the backend's authentication settings.
func PrintAuthStatus(w io.Writer, st *api.AuthStatus) error {
	state := "disabled"
	if st.Enabled {
		state = "enabled"
	}
	_, err := fmt.Fprintf(w, "Authentication %s (supabase: %s)\n", state, st.SupabaseURL)
	return err
}
