package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/natefinch/atomic"

	"codeberg.org/cvforge/server/cvforge/resumes"
	"codeberg.org/cvforge/server/internal/apiclient"
	"codeberg.org/cvforge/server/internal/credits"
	"codeberg.org/cvforge/server/internal/exports"
	"codeberg.org/cvforge/server/internal/identity"
	"codeberg.org/cvforge/server/internal/logger"
	"codeberg.org/cvforge/server/internal/quota"
	"codeberg.org/cvforge/server/internal/workflow"
)

const (
	requestTimeout = 60 * time.Second
	stepInterval   = time.Second
	reconnectDelay = 2 * time.Second
)

var errNameRequired = errors.New("please fill in at least your full name before exporting")

func startGenerationCmd(wf *workflow.Workflow, form resumes.Form) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return WorkflowMsg(wf.Start(ctx, form))
	}
}

func confirmCmd(wf *workflow.Workflow, prompt string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return WorkflowMsg(wf.Confirm(ctx, prompt))
	}
}

func stepTick() tea.Cmd {
	return tea.Tick(stepInterval, func(time.Time) tea.Msg {
		return stepTickMsg{}
	})
}

func refreshCmd(cache *credits.Cache) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return CreditsMsg(cache.Refresh(ctx))
	}
}

// stores token, then asks the server who it belongs to
func loginCmd(client *apiclient.Client, holder *identity.Holder, token string) tea.Cmd {
	return func() tea.Msg {
		if err := holder.Set(token); err != nil {
			return ErrorMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		user, err := client.Me(ctx)
		if err != nil {
			if errors.Is(err, apiclient.ErrNotAuthenticated) {
				holder.Clear() //nolint:errcheck,gosec // the token is unusable either way
				return ErrorMsg{err: errors.New("that token was rejected, sign in again")}
			}

			return ErrorMsg{err: fmt.Errorf("signed in, but could not load your profile: %w", err)}
		}

		return SignedInMsg{email: user.Email}
	}
}

func logoutCmd(holder *identity.Holder) tea.Cmd {
	return func() tea.Msg {
		if err := holder.Clear(); err != nil {
			return ErrorMsg{err: err}
		}

		return nil
	}
}

// writes the CV as markdown, counting it against today's free exports
func exportCmd(counter *exports.Counter, dir string, form resumes.Form) tea.Cmd {
	return func() tea.Msg {
		path, err := exportForm(counter, dir, form)
		if err != nil {
			return ErrorMsg{err: err}
		}

		return ExportedMsg{path: path, remaining: counter.Remaining()}
	}
}

func exportForm(counter *exports.Counter, dir string, form resumes.Form) (string, error) {
	if strings.TrimSpace(form.FullName) == "" {
		return "", errNameRequired
	}

	if !counter.Allowed() {
		return "", fmt.Errorf("%w: you can export %d CVs per day", exports.ErrDailyLimit, exports.DailyLimit)
	}

	path := filepath.Join(dir, slug(form.FullName)+"-cv.md")

	if err := atomic.WriteFile(path, strings.NewReader(resumes.Markdown(form))); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := counter.Record(); err != nil {
		return "", err
	}

	return path, nil
}

// keeps a credit stream open while signed in, feeding pushes into the cache
func WatchCredits(ctx context.Context, client *apiclient.Client, holder *identity.Holder, cache *credits.Cache) {
	for ctx.Err() == nil {
		if !holder.Present() {
			if !sleep(ctx, reconnectDelay) {
				return
			}
			continue
		}

		err := client.Watch(ctx, func(s quota.Snapshot) {
			cache.Apply(s)
		})

		switch {
		case err == nil || ctx.Err() != nil:
		case apiclient.IsTransient(err):
			logger.Debug("credit stream closed, reconnecting", "error", err)
		default:
			logger.Warn("credit stream rejected", "error", err)
		}

		if !sleep(ctx, reconnectDelay) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func slug(name string) string {
	var b strings.Builder

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}

	if b.Len() == 0 {
		return "cv"
	}

	return b.String()
}
