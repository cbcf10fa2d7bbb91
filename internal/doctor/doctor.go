// Package doctor validates that the external backend tools a run depends
// on are actually present before any input is touched.
package doctor

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/mattjoyce/repack/internal/config"
	"github.com/mattjoyce/repack/internal/format"
)

// AllTools is every backend repack can drive, for the explicit
// `repack doctor` report.
var AllTools = []string{"7z", "ar", "bzip2", "gzip", "lzip", "lzop", "tar", "unrar", "unzip", "xz"}

// Issue describes a single missing or broken tool.
type Issue struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
}

// Result holds the outcome of a preflight run.
type Result struct {
	Valid  bool    `json:"valid"`
	Tools  []Tool  `json:"tools"`
	Errors []Issue `json:"errors,omitempty"`
}

// Tool is one resolved backend binary.
type Tool struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

// Doctor resolves backend tools against the configuration.
type Doctor struct {
	cfg      *config.Config
	lookPath func(string) (string, error)
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg, lookPath: exec.LookPath}
}

// RequiredTools computes the minimal backend tool set for a batch of
// classified inputs. The xz compressor is always required; tar only when
// some input produces a tar.xz artifact.
func RequiredTools(specs []format.Spec) []string {
	set := map[string]bool{"xz": true}
	for _, spec := range specs {
		if spec.Shape == format.ShapeTarXZ {
			set["tar"] = true
		}
		switch spec.Codec {
		case format.CodecGzip, format.CodecBzip2, format.CodecLzop, format.CodecLzip:
			set[spec.Codec] = true
		case format.CodecLzma, format.CodecXZ:
			// handled by xz itself
		}
		if spec.Archiver != "" {
			set[spec.Archiver] = true
		}
	}

	tools := make([]string, 0, len(set))
	for t := range set {
		tools = append(tools, t)
	}
	sort.Strings(tools)
	return tools
}

// Check resolves each named tool and reports failures. Tool overrides from
// the configuration are honored.
func (d *Doctor) Check(tools []string) *Result {
	r := &Result{Valid: true}
	for _, name := range tools {
		resolved, err := d.lookPath(d.cfg.ToolPath(name))
		if err != nil {
			r.Errors = append(r.Errors, Issue{
				Tool:    name,
				Message: fmt.Sprintf("%q not found (%v)", d.cfg.ToolPath(name), err),
			})
			r.Tools = append(r.Tools, Tool{Name: name})
			continue
		}
		r.Tools = append(r.Tools, Tool{Name: name, Path: resolved})
	}
	r.Valid = len(r.Errors) == 0
	return r
}

// FormatHuman returns a human-readable preflight report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	for _, tool := range r.Tools {
		if tool.Path != "" {
			fmt.Fprintf(&b, "  OK    %-6s %s\n", tool.Name, tool.Path)
		} else {
			fmt.Fprintf(&b, "  MISS  %s\n", tool.Name)
		}
	}

	if r.Valid {
		b.WriteString("All required backend tools present.\n")
	} else {
		fmt.Fprintf(&b, "%d backend tool(s) missing:\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  ERROR %s: %s\n", e.Tool, e.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
