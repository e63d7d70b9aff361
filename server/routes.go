package server

import (
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

var systemPaths = map[string]bool{
	"/health": true,
	"/live":   true,
	"/ready":  true,
	"/info":   true,
}

// LogRoutes logs every registered route, API routes first.
func (s *Server) LogRoutes() {
	for _, r := range sortedRoutes(s.engine.Routes()) {
		s.log.Info("Route registered", map[string]interface{}{
			"method":  r.Method,
			"path":    r.Path,
			"handler": formatHandlerName(r.Handler),
			"system":  systemPaths[r.Path],
		})
	}
}

func sortedRoutes(routes gin.RoutesInfo) gin.RoutesInfo {
	sort.SliceStable(routes, func(i, j int) bool {
		iSys, jSys := systemPaths[routes[i].Path], systemPaths[routes[j].Path]
		if iSys != jSys {
			return !iSys
		}
		return routes[i].Path < routes[j].Path
	})
	return routes
}

// formatHandlerName shortens Gin's handler names:
// "github.com/org/svc/internal/api.(*Events).List-fm" becomes "Events.List",
// and closures such as "endpoint.Health.func1" become "health".
func formatHandlerName(fullPath string) string {
	name := strings.TrimSuffix(fullPath, "-fm")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.ReplaceAll(name, "(*", "")
	name = strings.ReplaceAll(name, ")", "")

	if strings.Contains(name, ".func") {
		parts := strings.Split(name, ".")
		for i := len(parts) - 1; i >= 0; i-- {
			if !strings.HasPrefix(parts[i], "func") {
				return strings.ToLower(parts[i])
			}
		}
	}

	// drop a lower-case package prefix
	if pkg, rest, ok := strings.Cut(name, "."); ok && rest != "" && strings.ToLower(pkg) == pkg {
		name = rest
	}
	return name
}
