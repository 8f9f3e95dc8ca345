// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

/*
Package constellation implements the aggregation peer that devices
synchronize with.

Devices POST a compressed delta to /api/v1/sync and receive the current
global set in the response. The Aggregator keeps only the latest delta per
device. Each federation round it:

  - drops devices that have not synced within DeviceTTL
  - averages each pattern across devices, weighting every report by
    score * samples, and keeps patterns reported by at least MinSources
    devices
  - ranks genres by summed pattern quality into regional trends
  - encodes the result under the global size cap and bumps the version

Endpoints:

	POST /api/v1/sync           delta in, global set out (octet-stream)
	GET  /api/v1/sync/version   {"version": n}
	GET  /api/v1/health         {"status", "version", "devices"}
	GET  /metrics               Prometheus exposition

The sync endpoint is rate limited per X-Device-ID and, with a token secret,
requires a bearer token whose subject matches the device header.
*/
package constellation
