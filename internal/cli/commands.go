package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/colthorp/devdocs-cli-go/internal/api"
	"github.com/colthorp/devdocs-cli-go/internal/cache"
	"github.com/colthorp/devdocs-cli-go/internal/core"
	"github.com/colthorp/devdocs-cli-go/internal/devserver"
	"github.com/colthorp/devdocs-cli-go/internal/history"
	"github.com/colthorp/devdocs-cli-go/internal/output"
	"github.com/colthorp/devdocs-cli-go/internal/queries"
)

func init() {
	rootCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, deleteCmd)
	rootCmd.AddCommand(searchCmd, suggestCmd, searchesCmd)
	rootCmd.AddCommand(dashboardCmd, recentCmd, tagsCmd, statusCmd)
	rootCmd.AddCommand(bookmarkCmd, unbookmarkCmd, bookmarksCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(configCmd, serveDevCmd, mcpCmd)
	configCmd.AddCommand(configShowCmd, configPathCmd)
	profileCmd.AddCommand(profileUpdateCmd, profileUserCmd, profileStatusCmd)

	listCmd.Flags().Int("page", 1, "Page number")
	listCmd.Flags().Int("page-size", core.DefaultPageSize, "Solutions per page (max 100)")
	listCmd.Flags().String("language", "", "Only solutions in this language")
	listCmd.Flags().String("tag", "", "Only solutions with this tag")
	listCmd.Flags().Bool("archived", false, "Include archived solutions")

	for _, cmd := range []*cobra.Command{createCmd, updateCmd} {
		cmd.Flags().String("title", "", "Title (5-200 characters)")
		cmd.Flags().String("description", "", "Description (20-2000 characters)")
		cmd.Flags().String("code", "", "Code (10-5000 characters)")
		cmd.Flags().String("code-file", "", "Read code from a file, or - for stdin")
		cmd.Flags().String("language", "", "Programming language")
		cmd.Flags().String("tags", "", "Comma separated tags")
	}

	deleteCmd.Flags().Bool("permanent", false, "Delete outright instead of archiving")

	bookmarkCmd.Flags().Bool("check", false, "Only report whether the solution is bookmarked")

	profileUpdateCmd.Flags().String("name", "", "Full name")
	profileUpdateCmd.Flags().String("bio", "", "Short biography")
	profileUpdateCmd.Flags().String("github", "", "GitHub username")
	profileUpdateCmd.Flags().String("twitter", "", "Twitter username")
	profileUpdateCmd.Flags().String("website", "", "Website URL")
	profileUpdateCmd.Flags().String("avatar", "", "Avatar URL")
	profileUpdateCmd.Flags().String("theme", "", "Theme: dark or light")
	profileUpdateCmd.Flags().String("language", "", "Interface language code")

	searchCmd.Flags().IntP("limit", "n", core.DefaultSearchLimit, "Maximum number of results")
	suggestCmd.Flags().IntP("limit", "n", 5, "Maximum number of suggestions")
	searchesCmd.Flags().Bool("clear", false, "Forget all recent searches")

	dashboardCmd.Flags().IntP("limit", "n", core.DefaultRecentLimit, "Recent solutions to show")
	dashboardCmd.Flags().BoolP("watch", "w", false, "Keep refreshing until interrupted; press Enter to refresh stale data")
	recentCmd.Flags().IntP("limit", "n", 10, "Maximum number of solutions")
	tagsCmd.Flags().IntP("limit", "n", core.DefaultTagsLimit, "Maximum number of tags")

	serveDevCmd.Flags().String("addr", core.DevServerAddr, "Listen address")
	serveDevCmd.Flags().String("token", "", "Require this bearer token for bookmark routes")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List solutions, newest first",
	Args:  cobra.NoArgs,
	RunE:  handleList,
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one solution",
	Args:  cobra.ExactArgs(1),
	RunE:  handleGet,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Save a new solution",
	Args:  cobra.NoArgs,
	RunE:  handleCreate,
}

var updateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Change fields of a solution",
	Args:  cobra.ExactArgs(1),
	RunE:  handleUpdate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Archive a solution, or delete it with --permanent",
	Args:  cobra.ExactArgs(1),
	RunE:  handleDelete,
}

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Semantic search across solutions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  handleSearch,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [partial]",
	Short: "Complete a partial query from solution titles",
	Args:  cobra.MinimumNArgs(1),
	RunE:  handleSuggest,
}

var searchesCmd = &cobra.Command{
	Use:         "searches",
	Short:       "Show recent searches",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipSession: "true"},
	RunE:        handleSearches,
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show knowledge base statistics and recent solutions",
	Args:  cobra.NoArgs,
	RunE:  handleDashboard,
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recently added solutions",
	Args:  cobra.NoArgs,
	RunE:  handleRecent,
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Show the most used tags",
	Args:  cobra.NoArgs,
	RunE:  handleTags,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the backend is reachable",
	Args:  cobra.NoArgs,
	RunE:  handleStatus,
}

var bookmarkCmd = &cobra.Command{
	Use:   "bookmark [id]",
	Short: "Toggle the bookmark on a solution",
	Args:  cobra.ExactArgs(1),
	RunE:  handleBookmark,
}

var unbookmarkCmd = &cobra.Command{
	Use:   "unbookmark [id]",
	Short: "Remove the bookmark from a solution",
	Args:  cobra.ExactArgs(1),
	RunE:  handleUnbookmark,
}

var bookmarksCmd = &cobra.Command{
	Use:   "bookmarks",
	Short: "List bookmarked solutions",
	Args:  cobra.NoArgs,
	RunE:  handleBookmarks,
}

var profileCmd = &cobra.Command{
	Use:     "profile",
	Aliases: []string{"whoami"},
	Short:   "Show your profile",
	Args:    cobra.NoArgs,
	RunE:    handleProfile,
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change fields of your profile",
	Args:  cobra.NoArgs,
	RunE:  handleProfileUpdate,
}

var profileUserCmd = &cobra.Command{
	Use:   "user [id]",
	Short: "Show another user's public profile",
	Args:  cobra.ExactArgs(1),
	RunE:  handleProfileUser,
}

var profileStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the backend requires authentication",
	Args:  cobra.NoArgs,
	RunE:  handleProfileStatus,
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Inspect configuration",
	Annotations: map[string]string{skipSession: "true"},
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Print the effective configuration with secrets redacted",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipSession: "true"},
	RunE:        handleConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print where configuration and history are stored",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipSession: "true"},
	RunE:        handleConfigPath,
}

var serveDevCmd = &cobra.Command{
	Use:         "serve-dev",
	Short:       "Run an in-memory DevDocs backend for local development",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipSession: "true"},
	RunE:        handleServeDev,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI integration",
	Args:  cobra.NoArgs,
	RunE:  handleMCP,
}

// render prints v as JSON with --raw and through pretty otherwise.
func render(cmd *cobra.Command, v any, pretty func(io.Writer) error) error {
	if raw {
		return output.PrintJSON(cmd.OutOrStdout(), v)
	}
	return pretty(cmd.OutOrStdout())
}

func handleList(cmd *cobra.Command, args []string) error {
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")
	language, _ := cmd.Flags().GetString("language")
	tag, _ := cmd.Flags().GetString("tag")
	archived, _ := cmd.Flags().GetBool("archived")

	params := api.ListParams{Page: page, PageSize: pageSize, Language: language, Tag: tag, IncludeArchived: archived}
	result, err := sess.queries.SolutionsPage(params).Fetch(cmd.Context())
	if err != nil {
		return err
	}
	return render(cmd, result, func(w io.Writer) error { return output.PrintSolutionPage(w, result) })
}

func handleGet(cmd *cobra.Command, args []string) error {
	sol, err := sess.queries.Solution(args[0]).Fetch(cmd.Context())
	if errors.Is(err, cache.ErrDisabled) {
		return queries.ErrMissingID
	}
	if err != nil {
		return err
	}
	return render(cmd, sol, func(w io.Writer) error { return output.PrintSolution(w, sol) })
}

// readCode resolves --code and --code-file. ok is false when neither is set.
func readCode(cmd *cobra.Command) (code string, ok bool, err error) {
	if path, _ := cmd.Flags().GetString("code-file"); path != "" {
		var data []byte
		if path == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return "", false, fmt.Errorf("failed to read code: %w", err)
		}
		return string(data), true, nil
	}
	if cmd.Flags().Changed("code") {
		code, _ = cmd.Flags().GetString("code")
		return code, true, nil
	}
	return "", false, nil
}

func handleCreate(cmd *cobra.Command, args []string) error {
	code, _, err := readCode(cmd)
	if err != nil {
		return err
	}
	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	language, _ := cmd.Flags().GetString("language")
	tags, _ := cmd.Flags().GetString("tags")

	in := api.SolutionInput{
		Title:       title,
		Description: description,
		Code:        code,
		Language:    language,
		Tags:        core.SplitCSV(tags),
	}
	sol, err := sess.queries.CreateSolution().Mutate(cmd.Context(), in)
	if err != nil {
		return err
	}
	core.ProgressPrint(fmt.Sprintf("Created solution %s", sol.ID), quiet)
	return render(cmd, sol, func(w io.Writer) error { return output.PrintSolution(w, sol) })
}

func handleUpdate(cmd *cobra.Command, args []string) error {
	var patch api.SolutionPatch
	flags := cmd.Flags()
	str := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}
	patch.Title = str("title")
	patch.Description = str("description")
	patch.Language = str("language")
	if flags.Changed("tags") {
		tags, _ := flags.GetString("tags")
		patch.Tags = core.SplitCSV(tags)
		if patch.Tags == nil {
			patch.Tags = []string{}
		}
	}
	code, ok, err := readCode(cmd)
	if err != nil {
		return err
	}
	if ok {
		patch.Code = &code
	}

	sol, err := sess.queries.UpdateSolution().Mutate(cmd.Context(), queries.UpdateInput{ID: args[0], Patch: patch})
	if err != nil {
		return err
	}
	core.ProgressPrint(fmt.Sprintf("Updated solution %s", sol.ID), quiet)
	return render(cmd, sol, func(w io.Writer) error { return output.PrintSolution(w, sol) })
}

func handleDelete(cmd *cobra.Command, args []string) error {
	permanent, _ := cmd.Flags().GetBool("permanent")
	msg, err := sess.queries.DeleteSolution().Mutate(cmd.Context(), queries.DeleteInput{ID: args[0], Permanent: permanent})
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Solution deleted"
		if !permanent {
			msg = "Solution archived"
		}
	}
	return render(cmd, api.MessageResponse{Message: msg}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, msg)
		return err
	})
}

func handleSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	results, err := sess.queries.RunSearch(cmd.Context(), query, limit)
	if errors.Is(err, cache.ErrDisabled) {
		return fmt.Errorf("search query must be at least %d characters", core.MinSearchQueryLength)
	}
	if err != nil {
		return err
	}
	return render(cmd, results, func(w io.Writer) error { return output.PrintSearchResults(w, query, results) })
}

func handleSuggest(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	sugs, err := sess.queries.Suggestions(strings.Join(args, " "), limit).Fetch(cmd.Context())
	if errors.Is(err, cache.ErrDisabled) {
		return fmt.Errorf("partial query must be at least %d characters", core.MinSuggestionLength)
	}
	if err != nil {
		return err
	}
	return render(cmd, sugs, func(w io.Writer) error { return output.PrintSuggestions(w, sugs) })
}

func handleSearches(cmd *cobra.Command, args []string) error {
	// History only needs the data directory, so incomplete API settings are fine.
	cfg, err := core.Load()
	if err != nil && !errors.Is(err, core.ErrMissingConfig) {
		return err
	}
	store := openHistory(cfg)

	if wipe, _ := cmd.Flags().GetBool("clear"); wipe {
		if err := store.Clear(); err != nil {
			return err
		}
		core.ProgressPrint("Cleared recent searches", quiet)
		return nil
	}
	searches, err := store.List()
	if err != nil {
		return err
	}
	return render(cmd, searches, func(w io.Writer) error { return output.PrintSearches(w, searches) })
}

func handleDashboard(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	watch, _ := cmd.Flags().GetBool("watch")

	d := sess.queries.Dashboard(limit)
	defer d.Close()
	if watch {
		return watchDashboard(cmd, d)
	}
	r, err := d.Fetch(cmd.Context())
	if err != nil {
		return err
	}
	return printDashboard(cmd.OutOrStdout(), r)
}

type dashboardView struct {
	Stats  *api.DashboardStats `json:"stats"`
	Recent []api.Solution      `json:"recent_solutions"`
}

func printDashboard(w io.Writer, r queries.DashboardResult) error {
	if r.IsError {
		_, err := fmt.Fprintf(w, "Dashboard unavailable: %s\n", userMessage(r.Err))
		return err
	}
	if raw {
		return output.PrintJSON(w, dashboardView{Stats: r.Stats.Data, Recent: r.Recent.Data})
	}
	if r.Stats.Data != nil {
		if err := output.PrintStats(w, r.Stats.Data); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, "\nRecent solutions")
	return output.PrintSolutions(w, r.Recent.Data)
}

// watchDashboard redraws whenever either part settles on new data or a new
// error, until the command context ends. Enter on stdin counts as a focus.
func watchDashboard(cmd *cobra.Command, d *queries.Dashboard) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var mu sync.Mutex
	var shown string
	unsubscribe := d.Subscribe(func(r queries.DashboardResult) {
		if r.IsLoading || r.Stats.IsFetching || r.Recent.IsFetching {
			return
		}
		state := fmt.Sprintf("%v|%v|%v", r.Stats.UpdatedAt, r.Recent.UpdatedAt, r.Err)
		mu.Lock()
		defer mu.Unlock()
		if state == shown {
			return
		}
		shown = state
		if err := printDashboard(out, r); err != nil {
			sess.logger.Warn().Err(err).Msg("failed to render dashboard")
		}
	})
	defer unsubscribe()

	d.Start(ctx)
	go sess.queries.MonitorConnectivity(ctx, 0)
	go focusOnEnter(ctx, cmd.InOrStdin(), sess.cache)

	core.ProgressPrint("Watching dashboard; press Enter to refresh, Ctrl-C to stop", quiet)
	<-ctx.Done()
	return nil
}

func focusOnEnter(ctx context.Context, in io.Reader, m *cache.Manager) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		m.Focus()
	}
}

func handleRecent(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	sols, err := sess.queries.Recent(limit).Fetch(cmd.Context())
	if err != nil {
		return err
	}
	return render(cmd, sols, func(w io.Writer) error { return output.PrintSolutions(w, sols) })
}

func handleTags(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	tags, err := sess.queries.PopularTags(limit).Fetch(cmd.Context())
	if err != nil {
		return err
	}
	return render(cmd, tags, func(w io.Writer) error { return output.PrintTags(w, tags) })
}

func handleStatus(cmd *cobra.Command, args []string) error {
	online := sess.queries.CheckConnectivity(cmd.Context())
	state := "online"
	if !online {
		state = "offline"
	}
	return render(cmd, map[string]any{"api_url": sess.cfg.APIBaseURL, "online": online}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s: %s\n", sess.cfg.APIBaseURL, state)
		return err
	})
}

func handleBookmark(cmd *cobra.Command, args []string) error {
	if check, _ := cmd.Flags().GetBool("check"); check {
		return checkBookmark(cmd, args[0])
	}
	toggle, err := sess.queries.ToggleBookmark().Mutate(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return render(cmd, toggle, func(w io.Writer) error {
		msg := toggle.Message
		if msg == "" {
			msg = "Bookmark removed"
			if toggle.Bookmarked {
				msg = "Bookmark added"
			}
		}
		_, err := fmt.Fprintln(w, msg)
		return err
	})
}

func checkBookmark(cmd *cobra.Command, id string) error {
	on, err := sess.queries.Bookmarked(id).Fetch(cmd.Context())
	if errors.Is(err, cache.ErrDisabled) {
		return queries.ErrMissingID
	}
	if err != nil {
		return err
	}
	return render(cmd, map[string]bool{"bookmarked": on}, func(w io.Writer) error {
		msg := "Not bookmarked"
		if on {
			msg = "Bookmarked"
		}
		_, err := fmt.Fprintln(w, msg)
		return err
	})
}

func handleUnbookmark(cmd *cobra.Command, args []string) error {
	if _, err := sess.queries.RemoveBookmark().Mutate(cmd.Context(), args[0]); err != nil {
		return err
	}
	return render(cmd, api.MessageResponse{Message: "Bookmark removed"}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, "Bookmark removed")
		return err
	})
}

func handleBookmarks(cmd *cobra.Command, args []string) error {
	bms, err := sess.queries.Bookmarks().Fetch(cmd.Context())
	if err != nil {
		return err
	}
	return render(cmd, bms, func(w io.Writer) error { return output.PrintBookmarks(w, bms) })
}

func handleProfile(cmd *cobra.Command, args []string) error {
	p, err := sess.queries.Profile().Fetch(cmd.Context())
	if err != nil {
		return err
	}
	return render(cmd, p, func(w io.Writer) error { return output.PrintProfile(w, p) })
}

// profileFlags maps update flags to patch fields. Only flags given on the
// command line are sent.
var profileFlags = []struct {
	name  string
	field func(*api.ProfilePatch) **string
}{
	{"name", func(p *api.ProfilePatch) **string { return &p.FullName }},
	{"bio", func(p *api.ProfilePatch) **string { return &p.Bio }},
	{"github", func(p *api.ProfilePatch) **string { return &p.GithubUsername }},
	{"twitter", func(p *api.ProfilePatch) **string { return &p.TwitterUsername }},
	{"website", func(p *api.ProfilePatch) **string { return &p.WebsiteURL }},
	{"avatar", func(p *api.ProfilePatch) **string { return &p.AvatarURL }},
	{"theme", func(p *api.ProfilePatch) **string { return &p.Theme }},
	{"language", func(p *api.ProfilePatch) **string { return &p.Language }},
}

func handleProfileUpdate(cmd *cobra.Command, args []string) error {
	var patch api.ProfilePatch
	for _, f := range profileFlags {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		v, _ := cmd.Flags().GetString(f.name)
		*f.field(&patch) = &v
	}
	p, err := sess.queries.UpdateProfile().Mutate(cmd.Context(), patch)
	if err != nil {
		return err
	}
	return render(cmd, p, func(w io.Writer) error { return output.PrintProfile(w, p) })
}

func handleProfileUser(cmd *cobra.Command, args []string) error {
	p, err := sess.queries.PublicProfile(args[0]).Fetch(cmd.Context())
	if errors.Is(err, cache.ErrDisabled) {
		return errors.New("user id is required")
	}
	if err != nil {
		return err
	}
	return render(cmd, p, func(w io.Writer) error { return output.PrintPublicProfile(w, p) })
}

func handleProfileStatus(cmd *cobra.Command, args []string) error {
	st, err := sess.queries.AuthStatus().Fetch(cmd.Context())
	if err != nil {
		return err
	}
	return render(cmd, st, func(w io.Writer) error { return output.PrintAuthStatus(w, st) })
}

func handleConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := core.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}
	redacted := cfg.Redacted()
	if raw {
		return output.PrintJSON(cmd.OutOrStdout(), redacted)
	}
	data, err := redacted.YAML()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func handleConfigPath(cmd *cobra.Command, args []string) error {
	cfg, err := core.Load()
	if err != nil && !errors.Is(err, core.ErrMissingConfig) {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config:  %s\n", core.ConfigFilePath())
	fmt.Fprintf(out, "history: %s\n", history.NewFilesystemBackend(cfg.DataDir).Path())
	return nil
}

func handleServeDev(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	token, _ := cmd.Flags().GetString("token")

	logger := core.NewLogger(core.Config{Environment: core.EnvDevelopment, LogLevel: "info"}, verbose)
	srv := devserver.New(devserver.WithLogger(logger), devserver.WithToken(token))
	core.ProgressPrint(fmt.Sprintf("DevDocs dev server listening on http://%s", addr), quiet)
	return srv.ListenAndServe(cmd.Context(), addr)
}

func handleMCP(cmd *cobra.Command, args []string) error {
	return runMCPServer(cmd.Context(), sess.queries)
}
