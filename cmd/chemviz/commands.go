package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/rpggio/chemviz/internal/api"
	"github.com/rpggio/chemviz/internal/charts"
	"github.com/rpggio/chemviz/internal/domain/dashboard"
	"github.com/rpggio/chemviz/internal/domain/dataset"
	"github.com/rpggio/chemviz/internal/mcp"
	"github.com/rpggio/chemviz/internal/router"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var errUsage = errors.New("usage")

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string, out io.Writer) error
}

var commands = []command{
	{"login", "sign in with -user (email or username) and -password", runLogin},
	{"signup", "create an account (-name -email -password -confirm)", runSignup},
	{"logout", "sign out and forget the stored token", runLogout},
	{"status", "show whether a session is stored", runStatus},
	{"upload", "upload a CSV file: upload <file.csv>", runUpload},
	{"dashboard", "show summary, rows and insights (-id -limit -charts -json)", runDashboard},
	{"history", "list the five most recent uploads (-json)", runHistory},
	{"report", "download a dataset's PDF report (-id -dir)", runReport},
	{"mcp", "serve the client as MCP tools over stdio", runMCP},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: chemviz <command> [flags]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(tw, "  %s\t%s\n", c.name, c.summary)
	}
	tw.Flush()
}

func run(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(ctx, a, args[1:], out)
		}
	}
	return errUsage
}

func runLogin(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	user := fs.String("user", "", "email address or username")
	password := fs.String("password", "", "password (default $CHEMVIZ_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("CHEMVIZ_PASSWORD")
	}

	if _, err := a.client.Login(ctx, api.Credentials{Identifier: *user, Password: *password}); err != nil {
		return err
	}
	a.router.Navigate(router.PathDashboard, nil)
	fmt.Fprintln(out, "Signed in.")
	return nil
}

func runSignup(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	var p api.Profile
	fs.StringVar(&p.Name, "name", "", "full name")
	fs.StringVar(&p.Email, "email", "", "email address")
	fs.StringVar(&p.Password, "password", "", "password")
	fs.StringVar(&p.ConfirmPassword, "confirm", "", "password again")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.client.Signup(ctx, p); err != nil {
		return err
	}
	a.router.Navigate(router.PathDashboard, nil)
	fmt.Fprintln(out, "Account created. Signed in.")
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string, out io.Writer) error {
	if err := a.sessions.Logout(ctx); err != nil {
		return err
	}
	a.router.Navigate(router.PathLanding, nil)
	fmt.Fprintln(out, "Signed out.")
	return nil
}

func runStatus(_ context.Context, a *app, _ []string, out io.Writer) error {
	if a.sessions.IsAuthenticated() {
		fmt.Fprintf(out, "Signed in (%s)\n", a.cfg.API.BaseURL)
	} else {
		fmt.Fprintln(out, "Signed out")
	}
	return nil
}

func runUpload(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	path := args[0]
	if err := dataset.ValidateCSVName(path); err != nil {
		return err
	}
	if err := a.require(router.PathUpload, nil); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := a.client.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	summary := result.Summary
	a.router.Navigate(router.PathDashboard, &dashboard.NavState{DatasetID: result.DatasetID, Summary: &summary})

	fmt.Fprintf(out, "Uploaded %s as dataset %d.\n\n", filepath.Base(path), result.DatasetID)
	printSummary(out, &summary)
	printInsights(out, dataset.Insights(&summary))
	return nil
}

func runDashboard(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	id := fs.Int64("id", 0, "dataset id (default: most recent upload)")
	limit := fs.Int("limit", 0, "restrict to the first N rows; 0 shows all")
	chartsDir := fs.String("charts", "", "write PNG charts into this directory")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit < 0 {
		return dashboard.ErrInvalidLimit
	}
	if err := a.require(router.PathDashboard, nil); err != nil {
		return err
	}

	vm := dashboard.NewViewModel(a.client, a.logger)
	var nav *dashboard.NavState
	if *id > 0 {
		nav = &dashboard.NavState{DatasetID: *id, Limit: *limit}
	}
	if err := vm.Mount(ctx, nav); err != nil {
		return err
	}
	if st := vm.State(); st.Status == dashboard.StatusReady && st.Rows == nil {
		if err := vm.SetLimit(ctx, *limit); err != nil {
			return err
		}
	}

	st := vm.State()
	if st.Status == dashboard.StatusEmpty {
		fmt.Fprintln(out, "No datasets uploaded yet. Upload one with: chemviz upload <file.csv>")
		return nil
	}

	var chartPaths []string
	if *chartsDir != "" && st.Summary != nil {
		paths, err := charts.Render(*st.Summary, *chartsDir)
		if err != nil {
			return err
		}
		chartPaths = paths
	}

	if *asJSON {
		return writeJSON(out, struct {
			dashboard.State
			Insights []dataset.Insight `json:"insights"`
			Charts   []string          `json:"charts,omitempty"`
		}{st, vm.Insights(), chartPaths})
	}

	fmt.Fprintf(out, "Dataset %d", st.DatasetID)
	if st.Limit > 0 {
		fmt.Fprintf(out, " (first %d rows)", st.Limit)
	}
	fmt.Fprint(out, "\n\n")
	printSummary(out, st.Summary)
	if st.Rows != nil {
		printRows(out, *st.Rows)
	}
	printInsights(out, vm.Insights())
	for _, p := range chartPaths {
		fmt.Fprintf(out, "chart: %s\n", p)
	}
	return nil
}

func runHistory(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.require(router.PathHistory, nil); err != nil {
		return err
	}

	view, err := dashboard.LoadHistory(ctx, a.client)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(out, view)
	}
	if view.Empty {
		fmt.Fprintln(out, "No uploads yet.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tUPLOADED\tEQUIPMENT\tAVG PRESSURE\tAVG TEMP")
	for _, e := range view.Entries {
		uploaded := ""
		if !e.UploadedAt.IsZero() {
			uploaded = e.UploadedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.2f\t%.2f\n", e.ID, e.FileName, uploaded,
			e.Summary.TotalEquipment, e.Summary.AveragePressure, e.Summary.AverageTemperature)
	}
	return tw.Flush()
}

func runReport(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	id := fs.Int64("id", 0, "dataset id")
	dir := fs.String("dir", a.cfg.Downloads.Dir, "directory to save into")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.require(router.PathHistory, nil); err != nil {
		return err
	}

	path, err := a.client.DownloadReport(ctx, *id, *dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %s\n", path)
	return nil
}

func runMCP(ctx context.Context, a *app, _ []string, _ io.Writer) error {
	server := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			API:      a.client,
			Sessions: a.sessions,
			Router:   a.router,
		},
		DownloadDir: a.cfg.Downloads.Dir,
		Logger:      a.logger,
	})

	a.logger.Info("starting stdio transport")
	// Run blocks until stdin closes or ctx is canceled.
	if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func printSummary(out io.Writer, s *dataset.Summary) {
	if s == nil {
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total equipment\t%d\n", s.TotalEquipment)
	fmt.Fprintf(tw, "Average flowrate\t%.2f\n", s.AverageFlowrate)
	fmt.Fprintf(tw, "Average pressure\t%.2f\n", s.AveragePressure)
	fmt.Fprintf(tw, "Average temperature\t%.2f\n", s.AverageTemperature)
	if s.MaxTemperature != nil {
		fmt.Fprintf(tw, "Max temperature\t%.2f\n", *s.MaxTemperature)
	}
	for _, typ := range slices.Sorted(maps.Keys(s.TypeDistribution)) {
		fmt.Fprintf(tw, "  %s\t%d\n", typ, s.TypeDistribution[typ])
	}
	tw.Flush()
	fmt.Fprintln(out)
}

func printRows(out io.Writer, page dataset.RowPage) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EQUIPMENT\tTYPE\tFLOWRATE\tPRESSURE\tTEMPERATURE")
	for _, row := range page.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.2f\n", row.EquipmentName, row.Type, row.Flowrate, row.Pressure, row.Temperature)
	}
	tw.Flush()
	fmt.Fprintf(out, "Showing %d of %d rows\n\n", len(page.Rows), page.TotalCount)
}

func printInsights(out io.Writer, insights []dataset.Insight) {
	for _, in := range insights {
		fmt.Fprintf(out, "[%s] %s: %s\n", strings.ToUpper(string(in.Status)), in.Title, in.Description)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
