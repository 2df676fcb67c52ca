// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package notice shows user facing notices. Texts are message IDs and get localized when the
// notice is shown.
package notice

import (
	"context"

	"github.com/vorlif/spreak"
	"github.com/vorlif/spreak/localize"
)

// Notice is a message with a single dismiss action. Blocking notices require the user to
// acknowledge them.
type Notice struct {
	Kind     string
	Title    localize.MsgID
	Body     localize.MsgID
	Dismiss  localize.MsgID
	Blocking bool
}

// Localized holds the texts of a notice in the user's language.
type Localized struct {
	Title   string
	Body    string
	Dismiss string
}

// Localize translates the notice texts with loc.
func (n Notice) Localize(loc *spreak.Localizer) Localized {
	return Localized{
		Title:   loc.Get(n.Title),
		Body:    loc.Get(n.Body),
		Dismiss: loc.Get(n.Dismiss),
	}
}

type Notifier interface {
	Name() string
	Show(ctx context.Context, n Notice) error
}
