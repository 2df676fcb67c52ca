// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package i18n

import (
	"testing"

	"golang.org/x/text/language"
)

func TestLanguage(t *testing.T) {
	t.Run("configured locale is used", func(t *testing.T) {
		if tag := Language("de-DE"); tag != language.MustParse("de-DE") {
			t.Errorf("expected de-DE, got %s", tag)
		}
	})
	t.Run("empty locale is detected", func(t *testing.T) {
		if tag := Language(""); tag == language.Und {
			t.Error("expected a detected or fallback language")
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("english localizer returns source strings", func(t *testing.T) {
		loc, err := New(language.English)
		if err != nil {
			t.Fatalf("failed to create i18n provider: %s", err)
		}
		if got := loc.Get("Warning"); got != "Warning" {
			t.Errorf("expected %q, got %q", "Warning", got)
		}
	})
	t.Run("german localizer translates notices", func(t *testing.T) {
		loc, err := New(language.German)
		if err != nil {
			t.Fatalf("failed to create i18n provider: %s", err)
		}
		if got := loc.Get("Your device has been restricted."); got != "Ihr Gerät wurde eingeschränkt." {
			t.Errorf("unexpected translation: %q", got)
		}
	})
}
