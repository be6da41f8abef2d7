package presentation

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jukebot/jukebot/internal/bot"
	"github.com/jukebot/jukebot/internal/modules/info/application"
)

// StatusHandler handles the /status command.
type StatusHandler struct {
	interactor *application.StatusInteractor
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(version string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{
		interactor: application.NewStatusInteractor(version, startedAt),
	}
}

// Handle processes the status command and sends the response.
func (h *StatusHandler) Handle(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	report := h.interactor.Execute()

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: report.Summary(),
		},
	})
}
