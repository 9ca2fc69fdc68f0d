package credits

import "codeberg.org/cvforge/server/internal/quota"

// Response is the quota snapshot returned by GET /credits
type Response = quota.Snapshot
