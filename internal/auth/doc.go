// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

/*
Package auth protects the farmweb read endpoints with HMAC-signed JWTs.

Two modes are supported (security.auth_mode):

  - none: every request is allowed (default, suits a single trusted LAN).
  - jwt: requests need "Authorization: Bearer <token>" or a "token" cookie.

Tokens are issued out of band with `farmweb -issue-token <subject>` and carry
a subject and a role. Dashboards and farmwatch send them on every poll.

Device ingest (POST /api/v1/sensors/data) is never behind this middleware;
field devices are expected to reach farmweb over a private network.
*/
package auth
