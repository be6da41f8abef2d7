package info

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jukebot/jukebot/internal/bot"
	"github.com/jukebot/jukebot/internal/modules/info/presentation"
)

func init() {
	bot.Register(&InfoModule{})
}

// version is injected from the main package before modules load.
var version = "dev"

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// InfoModule provides the /status command.
type InfoModule struct {
	statusHandler *presentation.StatusHandler
}

// Name returns the module name.
func (m *InfoModule) Name() string {
	return "info"
}

// Commands returns the slash commands for this module.
func (m *InfoModule) Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "status",
			Description: "Show bot version and uptime",
		},
	}
}

// CommandHandlers returns the command handlers for this module.
func (m *InfoModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"status": m.statusHandler.Handle,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *InfoModule) EventHandlers() []bot.EventHandler {
	return nil
}

// Init initializes the module.
func (m *InfoModule) Init(deps bot.ModuleDependencies) error {
	m.statusHandler = presentation.NewStatusHandler(version, time.Now())
	return nil
}

// Shutdown cleans up module resources.
func (m *InfoModule) Shutdown() error {
	return nil
}
