package mcp

import (
	"context"

	"github.com/rpggio/chemviz/internal/domain/session"
	"github.com/rpggio/chemviz/internal/router"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolRoutes maps each page-backed tool to the route it renders.
var toolRoutes = map[string]string{
	"upload_csv":      router.PathUpload,
	"get_dashboard":   router.PathDashboard,
	"get_history":     router.PathHistory,
	"download_report": router.PathHistory,
}

// Guard resolves routes against the session.
type Guard interface {
	Resolve(path string) router.Decision
}

// guardMiddleware rejects calls to protected tools while the session is
// anonymous. The tool never runs; the caller gets a NOT_AUTHENTICATED tool error.
func guardMiddleware(guard Guard) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if method != "tools/call" || guard == nil {
				return next(ctx, method, req)
			}

			call, ok := req.(*sdkmcp.CallToolRequest)
			if !ok || call.Params == nil {
				return next(ctx, method, req)
			}

			path, protected := toolRoutes[call.Params.Name]
			if !protected {
				return next(ctx, method, req)
			}

			decision := guard.Resolve(path)
			if decision.Redirected {
				return errorResult(session.ErrNotAuthenticated), nil
			}

			return next(ctx, method, req)
		}
	}
}

func errorResult(err error) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: MapError(err).Error()}},
	}
}
