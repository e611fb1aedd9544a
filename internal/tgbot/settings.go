package tgbot

import (
	"context"
	"html"
	"strings"

	"github.com/go-faster/errors"

	"github.com/Geergon/fedstat-userbot/internal/config"
)

func (r *Router) settingsText() string {
	flags := r.Config.Flags()
	var b strings.Builder
	b.WriteString("⚙️ <b>Settings</b>")
	for _, name := range config.FlagNames() {
		b.WriteString("\n" + boolToEmoji(flags[name]) + " <code>" + name + "</code>")
	}
	b.WriteString("\n\nUsage: <code>.fset &lt;name&gt; on|off</code>")
	return b.String()
}

// settings shows the runtime toggles, or flips one with ".fset name on".
func (r *Router) settings(ctx context.Context, cmd Command, p *progress) error {
	fields := cmd.Fields()
	if len(fields) == 0 {
		return p.set(ctx, r.settingsText())
	}
	if len(fields) != 2 {
		return refusal("Usage: <code>.fset &lt;name&gt; on|off</code>")
	}

	var on bool
	switch strings.ToLower(fields[1]) {
	case "on", "true", "1":
		on = true
	case "off", "false", "0":
	default:
		return refusal("Value must be on or off.")
	}
	if err := r.Config.SetFlag(fields[0], on); err != nil {
		if errors.Is(err, config.ErrUnknownToggle) {
			return refusal("Unknown setting <code>" + html.EscapeString(fields[0]) + "</code>.")
		}
		return err
	}
	return p.set(ctx, r.settingsText())
}
