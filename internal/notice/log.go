// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package notice

import (
	"context"
	"log/slog"

	"github.com/vorlif/spreak"

	"github.com/wneessen/userlocation/internal/logger"
)

// LogNotifier writes notices to the log. Blocking notices are logged as errors.
type LogNotifier struct {
	logger    *logger.Logger
	localizer *spreak.Localizer
}

func NewLogNotifier(log *logger.Logger, loc *spreak.Localizer) *LogNotifier {
	return &LogNotifier{logger: log, localizer: loc}
}

func (l *LogNotifier) Name() string {
	return "log"
}

func (l *LogNotifier) Show(ctx context.Context, n Notice) error {
	text := n.Localize(l.localizer)
	level := slog.LevelWarn
	if n.Blocking {
		level = slog.LevelError
	}
	l.logger.Log(ctx, level, text.Body, slog.String("kind", n.Kind), slog.String("title", text.Title),
		slog.String("dismiss", text.Dismiss))
	return nil
}
