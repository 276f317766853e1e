package usecase

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"repolens/internal/errs"
)

type TargetKind string

const (
	TargetLocal  TargetKind = "local"
	TargetGitHub TargetKind = "github"
	TargetAzure  TargetKind = "azure-devops"
)

// Target names the repository an analysis runs against.
type Target struct {
	Kind    TargetKind `json:"kind" yaml:"kind"`
	Dir     string     `json:"dir,omitempty" yaml:"dir,omitempty"`
	Owner   string     `json:"owner,omitempty" yaml:"owner,omitempty"`
	Org     string     `json:"organization,omitempty" yaml:"organization,omitempty"`
	Project string     `json:"project,omitempty" yaml:"project,omitempty"`
	Repo    string     `json:"repo,omitempty" yaml:"repo,omitempty"`
	Ref     string     `json:"ref,omitempty" yaml:"ref,omitempty"`
}

func (t Target) String() string {
	switch t.Kind {
	case TargetGitHub:
		s := "github.com/" + t.Owner + "/" + t.Repo
		if t.Ref != "" {
			s += "@" + t.Ref
		}
		return s
	case TargetAzure:
		return fmt.Sprintf("dev.azure.com/%s/%s/_git/%s", t.Org, t.Project, t.Repo)
	}
	return t.Dir
}

var ownerRepo = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*/[A-Za-z0-9._-]+$`)

// ParseTarget resolves a command-line argument into a Target. An existing
// directory always wins; otherwise GitHub and Azure DevOps URLs and the
// "owner/repo" shorthand are recognised. An optional "@ref" suffix pins a
// GitHub ref.
func ParseTarget(s string) (Target, error) {
	const op = "ParseTarget"
	s = strings.TrimSpace(s)
	if s == "" {
		s = "."
	}

	if info, err := os.Stat(s); err == nil && info.IsDir() {
		abs, err := filepath.Abs(s)
		if err != nil {
			return Target{}, errs.Validationf(op, "invalid directory %q: %v", s, err)
		}
		return Target{Kind: TargetLocal, Dir: abs}, nil
	}

	raw := s
	if !strings.Contains(s, "://") && (strings.HasPrefix(s, "github.com/") || strings.HasPrefix(s, "dev.azure.com/")) {
		raw = "https://" + s
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return Target{}, errs.Validationf(op, "invalid URL %q: %v", s, err)
		}
		host := strings.ToLower(u.Hostname())
		segs := splitPath(u.Path)
		switch {
		case host == "github.com" || host == "www.github.com":
			return parseGitHub(op, s, segs)
		case host == "dev.azure.com":
			return parseAzure(op, s, segs)
		case strings.HasSuffix(host, ".visualstudio.com"):
			org := strings.TrimSuffix(host, ".visualstudio.com")
			return parseAzure(op, s, append([]string{org}, segs...))
		}
		return Target{}, errs.Validationf(op, "unsupported repository host: %s", u.Host)
	}

	ref := ""
	if i := strings.LastIndex(s, "@"); i > 0 {
		s, ref = s[:i], s[i+1:]
	}
	if ownerRepo.MatchString(s) {
		parts := strings.SplitN(s, "/", 2)
		return Target{Kind: TargetGitHub, Owner: parts[0], Repo: strings.TrimSuffix(parts[1], ".git"), Ref: ref}, nil
	}
	return Target{}, errs.Validationf(op, "not a directory or recognised repository: %s", raw)
}

func parseGitHub(op, raw string, segs []string) (Target, error) {
	if len(segs) < 2 {
		return Target{}, errs.Validationf(op, "GitHub URL must name owner and repository: %s", raw)
	}
	t := Target{Kind: TargetGitHub, Owner: segs[0], Repo: strings.TrimSuffix(segs[1], ".git")}
	if len(segs) >= 4 && segs[2] == "tree" {
		t.Ref = strings.Join(segs[3:], "/")
	}
	return t, nil
}

// parseAzure expects {org}/{project}/_git/{repo}.
func parseAzure(op, raw string, segs []string) (Target, error) {
	if len(segs) < 4 || segs[2] != "_git" {
		return Target{}, errs.Validationf(op, "Azure DevOps URL must look like dev.azure.com/{org}/{project}/_git/{repo}: %s", raw)
	}
	return Target{Kind: TargetAzure, Org: segs[0], Project: segs[1], Repo: segs[3]}, nil
}

func splitPath(p string) []string {
	var segs []string
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(seg); err == nil {
			seg = unescaped
		}
		segs = append(segs, seg)
	}
	return segs
}
