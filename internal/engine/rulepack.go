package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/vitalstack/vitals-engine/internal/models"
)

// RulePack carries the per-rule enable flags and suggestion wording used by
// the classifier. Packs are immutable after load; hot reload swaps the whole
// pack.
type RulePack struct {
	suggestions map[models.IssueType]string
	disabled    map[models.IssueType]bool
}

type rulePackFile struct {
	Rules []rulePackEntry `yaml:"rules"`
}

type rulePackEntry struct {
	ID         string `yaml:"id"`
	Enabled    *bool  `yaml:"enabled"`
	Suggestion string `yaml:"suggestion"`
}

var defaultSuggestions = map[models.IssueType]string{
	models.IssueImageWithoutDimensions: "Set explicit width and height attributes on images so the browser reserves space before they load",
	models.IssueWebFontShift:           "Preload critical fonts and use font-display with metric-compatible fallbacks",
	models.IssueAdEmbedShift:           "Reserve a fixed-size container for ad slots and embeds instead of letting them expand on load",
	models.IssueDynamicContent:         "Reserve space for late-inserted content or insert it below the current viewport",
	models.IssueAnimationShift:         "Animate with transform instead of properties that trigger layout",
	models.IssueLongTask:               "Split long-running handler work into smaller tasks or move it to a web worker",
	models.IssueHeavyEventHandler:      "Debounce the handler or defer non-urgent work until the interaction has painted",
	models.IssueHighInputDelay:         "Reduce main-thread work during load so input handlers can start promptly",
	models.IssueHighPresentationDelay:  "Reduce rendering work after the handler: avoid large DOM updates and forced synchronous layout",
	models.IssueThirdPartyScript:       "Load third-party scripts with async or defer and drop the ones that are not essential",
}

// DefaultRulePack returns the built-in pack with every rule enabled.
func DefaultRulePack() *RulePack {
	return &RulePack{
		suggestions: defaultSuggestions,
		disabled:    map[models.IssueType]bool{},
	}
}

// LoadRulePack reads YAML overrides from path. A missing file yields the
// default pack. Entries with unknown rule ids are skipped.
func LoadRulePack(path string) (*RulePack, error) {
	pack := DefaultRulePack()
	if path == "" {
		return pack, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return pack, nil
		}
		return nil, err
	}
	var file rulePackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	known := make(map[models.IssueType]struct{})
	for _, t := range models.IssueTypes() {
		known[t] = struct{}{}
	}

	suggestions := make(map[models.IssueType]string, len(defaultSuggestions))
	for t, s := range defaultSuggestions {
		suggestions[t] = s
	}
	disabled := make(map[models.IssueType]bool)

	for _, entry := range file.Rules {
		t := models.IssueType(entry.ID)
		if _, ok := known[t]; !ok {
			continue
		}
		if entry.Suggestion != "" {
			suggestions[t] = entry.Suggestion
		}
		if entry.Enabled != nil && !*entry.Enabled {
			disabled[t] = true
		}
	}
	return &RulePack{suggestions: suggestions, disabled: disabled}, nil
}

// Enabled reports whether the rule for the issue type may fire.
func (p *RulePack) Enabled(t models.IssueType) bool {
	return !p.disabled[t]
}

// Suggestion returns the human-readable remediation text for an issue type.
func (p *RulePack) Suggestion(t models.IssueType) string {
	return p.suggestions[t]
}

// WatchRulePack monitors path and invokes onChange with each successfully
// reloaded pack until ctx is cancelled. A failed reload keeps the previous
// pack active. Editors often replace the file on save, so Create events are
// handled and the path is re-added afterwards.
func WatchRulePack(ctx context.Context, path string, logger *slog.Logger, onChange func(*RulePack)) error {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}
	logger.Info("watching rule pack", slog.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			pack, err := LoadRulePack(path)
			if err != nil {
				logger.Error("rule pack reload failed, keeping previous pack",
					slog.String("path", path), slog.Any("error", err))
				continue
			}
			logger.Info("rule pack reloaded", slog.String("path", path))
			onChange(pack)
			_ = watcher.Add(path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("rule pack watcher error", slog.Any("error", err))
		}
	}
}
