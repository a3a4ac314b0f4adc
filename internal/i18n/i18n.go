// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package i18n translates user-facing text. English is the default;
// Afrikaans is the second bundled language.
package i18n

import (
	"context"
	"embed"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed translations/*.toml
var translationFS embed.FS

// Languages lists the bundled translations. The first entry is the default
// and the fallback for anything unmatched.
var Languages = []language.Tag{
	language.English,
	language.Afrikaans,
}

var (
	bundle  *i18n.Bundle
	matcher = language.NewMatcher(Languages)
)

type localeContextKey struct{}
type localizerContextKey struct{}

// Init loads translations/active.<lang>.toml for every bundled language.
func Init() error {
	bundle = i18n.NewBundle(Languages[0])
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, tag := range Languages {
		file := fmt.Sprintf("translations/active.%s.toml", tag)
		if _, err := bundle.LoadMessageFileFS(translationFS, file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}

	return nil
}

// WithLocale adds the locale to the context.
func WithLocale(ctx context.Context, lang language.Tag) context.Context {
	locale := lang.String()
	ctx = context.WithValue(ctx, localeContextKey{}, locale)
	localizer := i18n.NewLocalizer(bundle, locale)
	return context.WithValue(ctx, localizerContextKey{}, localizer)
}

// ForLocale localizes ctx for a locale stored earlier with a session.
// Empty or unknown locales get the default language.
func ForLocale(ctx context.Context, locale string) context.Context {
	return WithLocale(ctx, MatchLanguage(locale))
}

// GetLocale returns the current locale from context.
func GetLocale(ctx context.Context) string {
	if locale, ok := ctx.Value(localeContextKey{}).(string); ok {
		return locale
	}
	return Languages[0].String()
}

// T translates a message by ID.
func T(ctx context.Context, messageID string) string {
	return TData(ctx, messageID, nil)
}

// TData translates a message with template data. Unknown IDs come back
// unchanged.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	msg, err := getLocalizer(ctx).Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}

// MatchLanguage picks the bundled language that best fits an
// Accept-Language header or a stored locale.
func MatchLanguage(acceptLanguage string) language.Tag {
	_, index := language.MatchStrings(matcher, acceptLanguage)
	return Languages[index]
}

func getLocalizer(ctx context.Context) *i18n.Localizer {
	if localizer, ok := ctx.Value(localizerContextKey{}).(*i18n.Localizer); ok {
		return localizer
	}
	return i18n.NewLocalizer(bundle, Languages[0].String())
}
