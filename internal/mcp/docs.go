package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `chemviz is a client for the chemical equipment visualizer backend.

Workflow:
1) login (or signup). The token is stored locally and survives restarts; check with session_status.
2) upload_csv with a .csv file of equipment readings (Equipment Name, Type, Flowrate, Pressure, Temperature).
3) get_dashboard for summary statistics, a row preview and insights. Pass limit to restrict to the first N rows, charts_dir to render PNG charts.
4) get_history lists the five most recent uploads; download_report saves a dataset's PDF report.

upload_csv, get_dashboard, get_history and download_report fail with NOT_AUTHENTICATED while signed out.
If the backend rejects the token (UNAUTHORIZED) the session is cleared; call login again.
login and signup report rejected credentials as INVALID_CREDENTIALS.

Docs: chemviz://docs/index
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "chemviz://docs/index",
		Name:        "docs_index",
		Title:       "chemviz docs index",
		Description: "Tools, CSV format, insight thresholds and error codes.",
		Content: `# chemviz

## Tools

- ` + "`login`" + `: identifier is an email (contains @) or a username.
- ` + "`signup`" + `: name, email, password, confirm_password (must match).
- ` + "`logout`" + `, ` + "`session_status`" + `.
- ` + "`upload_csv`" + `: ` + "`path`" + ` of a local file, or ` + "`file_name`" + ` plus inline ` + "`content`" + `.
- ` + "`get_dashboard`" + `: ` + "`dataset_id`" + ` (default: the last upload or the most recent history entry), ` + "`limit`" + ` (0 = all rows), ` + "`charts_dir`" + `.
- ` + "`get_history`" + `: up to five uploads, newest first.
- ` + "`download_report`" + `: ` + "`dataset_id`" + `, optional ` + "`dir`" + `.

## CSV format

Header row: ` + "`Equipment Name,Type,Flowrate,Pressure,Temperature`" + `. Numeric columns are floats.

## Insights

- Pressure: warning when the average exceeds 10.
- Temperature: critical when the average exceeds 200.
- Equipment fleet status is always reported.

## Error codes

NOT_AUTHENTICATED, UNAUTHORIZED, INVALID_CREDENTIALS, INVALID_FILE, INVALID_INPUT, NO_DATASET, NOT_FOUND, BACKEND_UNREACHABLE, BACKEND_ERROR, INTERNAL.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
