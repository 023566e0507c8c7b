package github

import (
	"net/url"
	"strings"
)

// ParseRepoURL 从 GitHub URL 中解析组织和仓库名
func ParseRepoURL(raw string) (org, repo string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" {
		return "", "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return "", "", false
	}

	parts := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	org = parts[0]
	repo = strings.TrimSuffix(parts[1], ".git")
	if org == "" || repo == "" {
		return "", "", false
	}
	return org, repo, true
}

// IsGitHubURL 是否指向 GitHub
func IsGitHubURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "github.com" || host == "www.github.com"
}
