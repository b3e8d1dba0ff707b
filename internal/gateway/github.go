// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/naka-gawa/github-insights/internal/domain"
)

// DefaultTimeout bounds every single upstream call.
const DefaultTimeout = 15 * time.Second

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	FetchUser(ctx context.Context, username string) (domain.UserProfile, error)
	FetchRepositories(ctx context.Context, username string, page, perPage int) ([]domain.Repository, error)
	FetchRepository(ctx context.Context, owner, name string) (domain.Repository, error)
	FetchLanguages(ctx context.Context, owner, name string) (map[string]int, error)
	FetchEvents(ctx context.Context, username string, perPage int) ([]domain.Event, error)
	// FetchContributions reads the contribution calendar over GraphQL and needs a token.
	FetchContributions(ctx context.Context, username string) ([]domain.ContributionDay, error)
}

// Options configures the gateway's HTTP stack.
type Options struct {
	// Token is optional; without it GitHub applies the anonymous rate limit.
	Token string
	// BaseURL overrides the REST endpoint, e.g. for GitHub Enterprise.
	BaseURL string
	// GraphQLURL overrides the GraphQL endpoint.
	GraphQLURL string
	// Timeout bounds each attempt of a call when Transport is nil. Zero means
	// DefaultTimeout. Sleeping on a secondary rate limit is not an attempt.
	Timeout time.Duration
	// MaxRateLimitSleep is the longest single wait on a secondary rate limit;
	// longer waits are not taken and the limited response is returned instead.
	MaxRateLimitSleep time.Duration
	// Transport is the innermost round tripper, e.g. an instrumented one
	// around NewTransport. It must enforce its own per-attempt timeout.
	Transport http.RoundTripper
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	authenticated bool
	logger        logrus.FieldLogger
}

// NewTransport returns a transport whose timeouts apply to each attempt:
// dialing, the TLS handshake and waiting for response headers.
func NewTransport(timeout time.Duration) *http.Transport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	t.TLSHandshakeTimeout = min(t.TLSHandshakeTimeout, timeout)
	t.ResponseHeaderTimeout = timeout
	return t
}

// contributionsQuery reads a user's contribution calendar for the last year.
type contributionsQuery struct {
	User struct {
		ContributionsCollection struct {
			ContributionCalendar struct {
				TotalContributions githubv4.Int
				Weeks              []struct {
					ContributionDays []struct {
						Date              string
						ContributionCount githubv4.Int
					}
				}
			}
		}
	} `graphql:"user(login: $login)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(opts Options, logger logrus.FieldLogger) (*GitHubGateway, error) {
	base := opts.Transport
	if base == nil {
		base = NewTransport(opts.Timeout)
	}
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(base, github_ratelimit.WithSingleSleepLimit(opts.MaxRateLimitSleep, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	var transport http.RoundTripper = rateLimitWaiter
	if opts.Token != "" {
		transport = &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}),
		}
	}

	// No Client.Timeout: it would also cover the waiter's sleep and turn a
	// secondary rate limit into a transport timeout. Callers bound the whole
	// call through ctx.
	httpClient := &http.Client{Transport: transport}

	restClient := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL: %w", err)
		}
		restClient.BaseURL = baseURL
	}

	graphqlClient := githubv4.NewClient(httpClient)
	if opts.GraphQLURL != "" {
		graphqlClient = githubv4.NewEnterpriseClient(opts.GraphQLURL, httpClient)
	}

	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		authenticated: opts.Token != "",
		logger:        logger,
	}, nil
}

// FetchUser fetches GET /users/{username}.
func (g *GitHubGateway) FetchUser(ctx context.Context, username string) (domain.UserProfile, error) {
	g.logger.WithField("user", username).Debug("fetching user profile")
	user, resp, err := g.restClient.Users.Get(ctx, username)
	if err != nil {
		return domain.UserProfile{}, normalizeError("get user", resp, err)
	}
	return toUserProfile(user), nil
}

// FetchRepositories fetches one page of GET /users/{username}/repos sorted by last update.
func (g *GitHubGateway) FetchRepositories(ctx context.Context, username string, page, perPage int) ([]domain.Repository, error) {
	g.logger.WithFields(logrus.Fields{"user": username, "page": page}).Debug("fetching repositories page")
	opts := &github.RepositoryListByUserOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	repos, resp, err := g.restClient.Repositories.ListByUser(ctx, username, opts)
	if err != nil {
		return nil, normalizeError("list repositories", resp, err)
	}
	result := make([]domain.Repository, 0, len(repos))
	for _, repo := range repos {
		result = append(result, toRepository(repo))
	}
	return result, nil
}

// FetchRepository fetches GET /repos/{owner}/{repo}.
func (g *GitHubGateway) FetchRepository(ctx context.Context, owner, name string) (domain.Repository, error) {
	g.logger.WithField("repo", owner+"/"+name).Debug("fetching repository")
	repo, resp, err := g.restClient.Repositories.Get(ctx, owner, name)
	if err != nil {
		return domain.Repository{}, normalizeError("get repository", resp, err)
	}
	return toRepository(repo), nil
}

// FetchLanguages fetches GET /repos/{owner}/{repo}/languages.
func (g *GitHubGateway) FetchLanguages(ctx context.Context, owner, name string) (map[string]int, error) {
	g.logger.WithField("repo", owner+"/"+name).Debug("fetching languages")
	languages, resp, err := g.restClient.Repositories.ListLanguages(ctx, owner, name)
	if err != nil {
		return nil, normalizeError("list languages", resp, err)
	}
	if languages == nil {
		languages = map[string]int{}
	}
	return languages, nil
}

// FetchEvents fetches GET /users/{username}/events.
func (g *GitHubGateway) FetchEvents(ctx context.Context, username string, perPage int) ([]domain.Event, error) {
	g.logger.WithField("user", username).Debug("fetching events")
	events, resp, err := g.restClient.Activity.ListEventsPerformedByUser(ctx, username, false, &github.ListOptions{PerPage: perPage})
	if err != nil {
		return nil, normalizeError("list events", resp, err)
	}
	result := make([]domain.Event, 0, len(events))
	for _, event := range events {
		result = append(result, domain.Event{
			Type:      event.GetType(),
			Repo:      event.GetRepo().GetName(),
			CreatedAt: event.GetCreatedAt().Time.UTC(),
		})
	}
	return result, nil
}

// FetchContributions fetches the user's contribution calendar.
func (g *GitHubGateway) FetchContributions(ctx context.Context, username string) ([]domain.ContributionDay, error) {
	if !g.authenticated {
		return nil, ErrUnauthenticated
	}
	g.logger.WithField("user", username).Debug("fetching contribution calendar")

	var q contributionsQuery
	variables := map[string]interface{}{"login": githubv4.String(username)}
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL query for contributions: %w", err)
	}

	var days []domain.ContributionDay
	for _, week := range q.User.ContributionsCollection.ContributionCalendar.Weeks {
		for _, day := range week.ContributionDays {
			date, err := time.Parse("2006-01-02", day.Date)
			if err != nil {
				continue
			}
			days = append(days, domain.ContributionDay{Date: date, Count: int(day.ContributionCount)})
		}
	}
	return days, nil
}

func toUserProfile(user *github.User) domain.UserProfile {
	return domain.UserProfile{
		Login:       user.GetLogin(),
		Name:        user.GetName(),
		AvatarURL:   user.GetAvatarURL(),
		HTMLURL:     user.GetHTMLURL(),
		Bio:         user.GetBio(),
		Company:     user.GetCompany(),
		Location:    user.GetLocation(),
		PublicRepos: user.GetPublicRepos(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
		CreatedAt:   user.GetCreatedAt().Time.UTC(),
	}
}

func toRepository(repo *github.Repository) domain.Repository {
	topics := repo.Topics
	if topics == nil {
		topics = []string{}
	}
	return domain.Repository{
		Owner:           repo.GetOwner().GetLogin(),
		Name:            repo.GetName(),
		Description:     repo.GetDescription(),
		Language:        repo.GetLanguage(),
		StargazersCount: repo.GetStargazersCount(),
		ForksCount:      repo.GetForksCount(),
		OpenIssuesCount: repo.GetOpenIssuesCount(),
		Topics:          topics,
		Fork:            repo.GetFork(),
		PushedAt:        repo.GetPushedAt().Time.UTC(),
	}
}
