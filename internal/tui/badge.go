package tui

import (
	"errors"
	"fmt"

	"codeberg.org/cvforge/server/internal/credits"
)

// the credit counter shown in every header
func creditBadge(s credits.State) string {
	switch s.Status {
	case credits.StatusReady:
		color := colorGreen
		switch {
		case s.Snapshot.Remaining == 0:
			color = colorRed
		case s.Snapshot.Remaining == 1:
			color = colorYellow
		}

		return badgeStyle.Foreground(color).Render(
			fmt.Sprintf("✦ %d/%d AI credits", s.Snapshot.Remaining, s.Snapshot.Total),
		)

	case credits.StatusLoading:
		return badgeStyle.Foreground(colorGray).Render("✦ checking credits…")

	case credits.StatusUnavailable:
		if errors.Is(s.Err, credits.ErrNoIdentity) {
			return badgeStyle.Foreground(colorGray).Render("✦ sign in for AI credits")
		}

		return badgeStyle.Foreground(colorGray).Render("✦ credits unavailable")

	default:
		return ""
	}
}
