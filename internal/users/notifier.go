// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package users

import (
	"context"

	"github.com/tomtom215/quillpress/internal/logging"
)

// Notifier delivers account messages. Delivery itself lives outside this
// service; implementations hand the message to a mailer.
type Notifier interface {
	SendVerification(ctx context.Context, u *User, token string) error
	SendPasswordReset(ctx context.Context, u *User, token string) error
}

// LogNotifier records that a message would have been sent.
type LogNotifier struct{}

func (LogNotifier) SendVerification(ctx context.Context, u *User, _ string) error {
	logging.Ctx(ctx).Info().Int64("user_id", u.ID).Str("email", logging.MaskEmail(u.Email)).Msg("Verification message queued")
	return nil
}

func (LogNotifier) SendPasswordReset(ctx context.Context, u *User, _ string) error {
	logging.Ctx(ctx).Info().Int64("user_id", u.ID).Str("email", logging.MaskEmail(u.Email)).Msg("Password reset message queued")
	return nil
}
