// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/Xuanwo/go-locale"
	"github.com/vorlif/humanize"
	humanizeit "github.com/vorlif/humanize/locale/it"
	"github.com/vorlif/spreak"
	"golang.org/x/text/language"
)

//go:embed locale/*
var locales embed.FS

// Localizer translates operator facing messages and formats numbers and times for the
// detected language.
type Localizer struct {
	*spreak.Localizer
	humanizer *humanize.Humanizer
	tag       language.Tag
}

func New(loc string) (*Localizer, error) {
	tag := language.Make(loc)
	var err error
	if loc == "" {
		tag, err = locale.Detect()
		if err != nil {
			tag = language.English // Unable to detect locale, fallback to English
		}
	}

	localeFS, err := fs.Sub(locales, "locale")
	if err != nil {
		return nil, fmt.Errorf("failed to load locales: %w", err)
	}

	bundle, err := spreak.NewBundle(
		spreak.WithSourceLanguage(language.English),
		spreak.WithFallbackLanguage(language.English),
		spreak.WithDomainFs("", localeFS),
		spreak.WithLanguage(language.Italian),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create i18n bundle: %w", err)
	}

	collection, err := humanize.New(humanize.WithLocale(humanizeit.New()))
	if err != nil {
		return nil, fmt.Errorf("failed to create humanizer: %w", err)
	}

	return &Localizer{
		Localizer: spreak.NewLocalizer(bundle, tag),
		humanizer: collection.CreateHumanizer(tag),
		tag:       tag,
	}, nil
}

// Tag returns the language the localizer was created for.
func (l *Localizer) Tag() language.Tag {
	return l.tag
}

// Count formats an integer with the thousands separator of the language.
func (l *Localizer) Count(value int) string {
	return l.humanizer.Intcomma(value)
}

// Time formats t as a localized date and time.
func (l *Localizer) Time(t time.Time) string {
	return l.humanizer.FormatTime(t, humanize.DateTimeFormat)
}
