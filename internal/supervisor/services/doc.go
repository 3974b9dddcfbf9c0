// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

/*
Package services adapts Quillpress components to suture.Service so they can
run under the supervisor tree.

  - HTTPServerService turns http.Server's blocking ListenAndServe into a
    context-aware Serve with graceful Shutdown.
  - SessionGCService runs session.Collector on a fixed interval.

Every service implements fmt.Stringer; suture uses the name in its log
events.
*/
package services
