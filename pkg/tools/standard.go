package tools

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RegisterStandardTools installs the stock tool set a fresh host starts
// with. Each tool is an ordinary data transform; the interesting part is the
// schema each declares, which exercises the sanitizer and the declaration
// projection.
func RegisterStandardTools(r *Registry) {
	r.Register(AnalyzePageSEO())
	r.Register(ManagePostTypes())
	r.Register(SecurityCheck())
	r.Register(RunFireworks())
	r.Register(SiteHealth())
	r.Register(ReadLogFile())
}

// AnalyzePageSEO scores a page draft on length and heading structure.
func AnalyzePageSEO() Definition {
	return Definition{
		Name:        "analyze_page_seo",
		Description: "Analyzes the SEO of the current page content or a specific text.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{
					"type":        "string",
					"description": "The content to analyze. If empty, tries to grab current editor content.",
				},
			},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			content, _ := args["content"].(string)
			if content == "" {
				content = "Content not provided"
			}
			wordCount := len(strings.Fields(content))
			hasH1 := strings.Contains(content, "# ")

			score := 40
			if wordCount > 300 {
				score = 80
			}
			feedback := []string{}
			if wordCount < 300 {
				feedback = append(feedback, "Content is too short.")
			} else {
				feedback = append(feedback, "Good length.")
			}
			if hasH1 {
				feedback = append(feedback, "H1 tag present.")
			} else {
				feedback = append(feedback, "Missing H1 tag.")
			}
			return map[string]any{"score": score, "feedback": feedback}, nil
		},
	}
}

// ManagePostTypes lists the registered post types of the managed site.
func ManagePostTypes() Definition {
	return Definition{
		Name:        "manage_post_types",
		Description: "Lists all registered post types on this site.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Handler: func(context.Context, map[string]any) (any, error) {
			return map[string]any{
				"post_types": []string{"post", "page", "attachment", "revision", "nav_menu_item"},
			}, nil
		},
	}
}

// SecurityCheck reports a canned audit of the site configuration.
func SecurityCheck() Definition {
	return Definition{
		Name:        "security_check",
		Description: "Performs a basic security audit of the site configuration.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"scan_depth": map[string]any{
					"type": "string",
					"enum": []any{"quick", "deep"},
				},
			},
		},
		Handler: func(context.Context, map[string]any) (any, error) {
			return map[string]any{
				"status": "warning",
				"issues": []map[string]any{
					{"severity": "high", "message": "Debug mode is enabled in wp-config.php"},
					{"severity": "medium", "message": `Admin user is named "admin"`},
				},
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}, nil
		},
	}
}

// RunFireworks signals the display surface to run a celebration.
func RunFireworks() Definition {
	return Definition{
		Name:        "run_fireworks",
		Description: "Triggers a visual celebration on the screen.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Handler: func(context.Context, map[string]any) (any, error) {
			return map[string]any{"success": true, "message": "Celebration triggered!"}, nil
		},
	}
}

// SiteHealth reports the managed site's health snapshot.
func SiteHealth() Definition {
	return Definition{
		Name:        "get_site_health",
		Description: "Retrieves the site health status.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Handler: func(context.Context, map[string]any) (any, error) {
			return map[string]any{"status": "good", "version": "6.4.2", "debug_mode": false}, nil
		},
	}
}

// ReadLogFile tails the site debug log. Marked sensitive so invocations are
// logged before execution.
func ReadLogFile() Definition {
	return Definition{
		Name:        "read_log_file",
		Description: "Reads the last lines of debug.log.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"lines": map[string]any{
					"type":        "integer",
					"description": "How many trailing lines to return. Defaults to 50.",
				},
			},
		},
		RequiresConfirmation: true,
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			lines := 50
			if raw, ok := args["lines"].(float64); ok && raw > 0 {
				lines = int(raw)
			}
			return map[string]any{
				"content": fmt.Sprintf("(last %d lines of debug.log unavailable in demo mode)", lines),
			}, nil
		},
	}
}
