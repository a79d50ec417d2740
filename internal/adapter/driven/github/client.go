// Package github implements the TaskSource port over GitHub Issues using the
// go-github library. A project's database id is the "owner/repo" name.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TaskSource = (*Client)(nil)

// priorityLabelPrefix marks labels that carry an issue's priority.
const priorityLabelPrefix = "priority:"

// Client lists and updates GitHub issues. Tokens arrive per call; the
// transport stack is shared.
type Client struct {
	gh     *gh.Client
	logger *slog.Logger
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching, keyed with Vary:
//     Authorization so entries never cross tokens)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client, token attached per call)
func NewClient(logger *slog.Logger) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)

	return &Client{
		gh:     gh.NewClient(rateLimitClient),
		logger: logger,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, logger *slog.Logger) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client, logger: logger}, nil
}

func (c *Client) authed(token string) *gh.Client {
	return c.gh.WithAuthToken(token)
}

// ListTasks lists issues of the repository named by creds.DatabaseID. The
// status filter "open", "closed" or "all" selects the issue state; any other
// value selects issues in any state carrying that label. Pull requests are
// skipped.
func (c *Client) ListTasks(ctx context.Context, creds model.Credentials, filter model.TaskFilter) ([]model.Task, error) {
	owner, repo, err := splitRepo(creds.DatabaseID)
	if err != nil {
		return nil, err
	}
	client := c.authed(creds.Token)
	limit := filter.EffectiveLimit()

	opts := &gh.IssueListByRepoOptions{
		State:     "open",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: gh.ListOptions{
			PerPage: min(limit, 100),
		},
	}
	switch status := strings.ToLower(filter.Status); status {
	case "":
	case "open", "closed", "all":
		opts.State = status
	default:
		opts.State = "all"
		opts.Labels = []string{filter.Status}
	}

	tasks := []model.Task{}
	for len(tasks) < limit {
		issues, resp, err := client.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing issues for %s (page %d): %w", creds.DatabaseID, opts.ListOptions.Page, toRemote(err))
		}

		c.logRateLimit(resp, creds.DatabaseID, opts.ListOptions.Page, len(issues))

		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			tasks = append(tasks, mapIssue(issue))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}

	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

// UpdateStatus closes the issue for "closed" or "done", reopens it for
// "open", and otherwise adds the status as a label.
func (c *Client) UpdateStatus(ctx context.Context, creds model.Credentials, update model.StatusUpdate) error {
	owner, repo, err := splitRepo(creds.DatabaseID)
	if err != nil {
		return err
	}
	number, err := strconv.Atoi(update.PageID)
	if err != nil {
		return fmt.Errorf("invalid issue number %q: %w", update.PageID, err)
	}
	client := c.authed(creds.Token)

	switch strings.ToLower(update.Status) {
	case "closed", "done":
		_, _, err = client.Issues.Edit(ctx, owner, repo, number, &gh.IssueRequest{State: gh.Ptr("closed")})
	case "open":
		_, _, err = client.Issues.Edit(ctx, owner, repo, number, &gh.IssueRequest{State: gh.Ptr("open")})
	default:
		_, _, err = client.Issues.AddLabelsToIssue(ctx, owner, repo, number, []string{update.Status})
	}
	if err != nil {
		return fmt.Errorf("updating issue %s#%d: %w", creds.DatabaseID, number, toRemote(err))
	}

	c.logger.Info("updated github issue status", "repo", creds.DatabaseID, "number", number, "status", update.Status)
	return nil
}

// TestConnection fetches the authenticated user.
func (c *Client) TestConnection(ctx context.Context, creds model.Credentials) error {
	user, _, err := c.authed(creds.Token).Users.Get(ctx, "")
	if err != nil {
		return fmt.Errorf("github connection test: %w", toRemote(err))
	}
	c.logger.Debug("github connection ok", "login", user.GetLogin())
	return nil
}

// logRateLimit logs rate limit information from a GitHub API response.
func (c *Client) logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	c.logger.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		c.logger.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapIssue converts a go-github Issue to a domain Task.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapIssue(issue *gh.Issue) model.Task {
	task := model.Task{
		PageID: strconv.Itoa(issue.GetNumber()),
		Title:  issue.GetTitle(),
		URL:    issue.GetHTMLURL(),
	}
	if task.Title == "" {
		task.Title = "Untitled"
	}
	if body := issue.GetBody(); body != "" {
		task.Description = &body
	}
	if state := issue.GetState(); state != "" {
		task.Status = &state
	}
	for _, label := range issue.Labels {
		name := label.GetName()
		if strings.HasPrefix(strings.ToLower(name), priorityLabelPrefix) {
			value := strings.TrimSpace(name[len(priorityLabelPrefix):])
			task.Priority = &value
			break
		}
	}
	return task
}

// toRemote converts a GitHub error response into a driven.RemoteError.
func toRemote(err error) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		status := 0
		if ghErr.Response != nil {
			status = ghErr.Response.StatusCode
		}
		return &driven.RemoteError{Status: status, Message: ghErr.Message}
	}
	return err
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
