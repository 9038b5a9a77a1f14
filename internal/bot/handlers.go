package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/omarshaarawi/flagcoach/internal/models"
	"github.com/omarshaarawi/flagcoach/internal/rotation"
	"github.com/omarshaarawi/flagcoach/internal/service"
)

const helpText = "Available commands:\n" +
	"/roster - Show the roster and counters\n" +
	"/add <name> - Add a player\n" +
	"/remove <name> - Remove a player\n" +
	"/here <name> - Toggle whether a player is here today\n" +
	"/block <name> <role> - Keep a player out of a role\n" +
	"/allow <name> <role> - Let a player back into a role\n" +
	"/offense - Run an offensive series\n" +
	"/defense - Run a defensive series\n" +
	"/undo - Undo the last series\n" +
	"/bench - Preview who sits next\n" +
	"/newgame - Archive this game and start the next\n" +
	"/resetpositions - Zero position and bench counts\n" +
	"/captains - Pick this game's captains\n" +
	"/season <games> - Plan captains over the remaining games\n" +
	"/export - Download the current snapshot"

type Handler struct {
	rotationService *service.RotationService
}

func NewHandler(rotationService *service.RotationService) *Handler {
	return &Handler{rotationService: rotationService}
}

func (h *Handler) HandleCommand(update tgbotapi.Update) tgbotapi.Chattable {
	command := strings.ToLower(update.Message.Command())
	args := strings.TrimSpace(update.Message.CommandArguments())
	return h.dispatch(update.Message.Chat.ID, command, args)
}

func (h *Handler) dispatch(chatID int64, command, args string) tgbotapi.Chattable {
	msg := tgbotapi.NewMessage(chatID, "")
	msg.ParseMode = tgbotapi.ModeMarkdown

	switch command {
	case "start":
		msg.Text = "Welcome to FlagCoach! Add your players with /add, then run /offense or /defense each series. Use /help to see every command."
	case "help":
		msg.Text = helpText
	case "roster":
		msg.Text = h.rotationService.Roster()
	case "add":
		h.handleAdd(&msg, args)
	case "remove":
		h.handlePlayerCommand(&msg, args, "remove", h.rotationService.RemovePlayer)
	case "here":
		h.handlePlayerCommand(&msg, args, "here", h.rotationService.ToggleAttendance)
	case "block":
		h.handleEligibility(&msg, args, "block", false)
	case "allow":
		h.handleEligibility(&msg, args, "allow", true)
	case "offense":
		h.handleSeries(&msg, models.PhaseOffense)
	case "defense":
		h.handleSeries(&msg, models.PhaseDefense)
	case "undo":
		h.handleUndo(&msg)
	case "bench":
		msg.Text = h.rotationService.Bench()
	case "newgame":
		msg.Text = h.rotationService.NewGame()
	case "resetpositions":
		msg.Text = h.rotationService.ResetPositions()
	case "captains":
		h.handleCaptains(&msg)
	case "season":
		h.handleSeason(&msg, args)
	case "export":
		return h.handleExport(chatID, &msg)
	default:
		msg.Text = "Unknown command. Use /help to see available commands."
	}

	return msg
}

func (h *Handler) handleAdd(msg *tgbotapi.MessageConfig, args string) {
	if args == "" {
		msg.Text = "Please provide a player name. Usage: /add <name>"
		return
	}
	result, err := h.rotationService.AddPlayer(args)
	if err != nil {
		msg.Text = errorText("Error adding player", err)
	} else {
		msg.Text = result
	}
}

func (h *Handler) handlePlayerCommand(msg *tgbotapi.MessageConfig, args, command string, fn func(string) (string, error)) {
	if args == "" {
		msg.Text = fmt.Sprintf("Please provide a player name. Usage: /%s <name>", command)
		return
	}
	result, err := fn(args)
	if err != nil {
		msg.Text = errorText("Error", err)
	} else {
		msg.Text = result
	}
}

// handleEligibility takes the role as the last word so names may contain spaces.
func (h *Handler) handleEligibility(msg *tgbotapi.MessageConfig, args, command string, eligible bool) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		msg.Text = fmt.Sprintf("Please provide a player and a role. Usage: /%s <name> <role>", command)
		return
	}
	name := strings.Join(fields[:len(fields)-1], " ")
	role := fields[len(fields)-1]
	result, err := h.rotationService.SetEligibility(name, role, eligible)
	if err != nil {
		msg.Text = errorText("Error updating eligibility", err)
	} else {
		msg.Text = result
	}
}

func (h *Handler) handleSeries(msg *tgbotapi.MessageConfig, phase models.Phase) {
	report, err := h.rotationService.RunSeries(phase)
	var short *rotation.InsufficientPlayersError
	switch {
	case errors.As(err, &short):
		msg.Text = fmt.Sprintf("Only %d players are marked here, need %d. Use /here to fix attendance.", short.Active, short.Needed)
	case err != nil:
		msg.Text = errorText("Error running series", err)
	default:
		msg.Text = report
	}
}

func (h *Handler) handleUndo(msg *tgbotapi.MessageConfig) {
	result, err := h.rotationService.Undo()
	switch {
	case errors.Is(err, rotation.ErrNothingToUndo):
		msg.Text = "Nothing to undo."
	case err != nil:
		msg.Text = errorText("Error undoing series", err)
	default:
		msg.Text = result
	}
}

func (h *Handler) handleCaptains(msg *tgbotapi.MessageConfig) {
	result, err := h.rotationService.PickCaptains()
	switch {
	case errors.Is(err, rotation.ErrNoCaptainPlan):
		msg.Text = "No captain plan yet. Use /season <games> first."
	case err != nil:
		msg.Text = errorText("Error picking captains", err)
	default:
		msg.Text = result
	}
}

func (h *Handler) handleSeason(msg *tgbotapi.MessageConfig, args string) {
	if args == "" {
		msg.Text = h.rotationService.SeasonSummary()
		return
	}
	games, err := strconv.Atoi(args)
	if err != nil {
		msg.Text = "Please provide the number of games left. Usage: /season <games>"
		return
	}
	result, err := h.rotationService.SetSeason(games)
	if err != nil {
		msg.Text = errorText("Error planning captains", err)
	} else {
		msg.Text = result
	}
}

func (h *Handler) handleExport(chatID int64, msg *tgbotapi.MessageConfig) tgbotapi.Chattable {
	data, err := h.rotationService.Export()
	if err != nil {
		msg.Text = errorText("Error exporting snapshot", err)
		return *msg
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "flagcoach.json", Bytes: data})
	doc.Caption = "Current rotation snapshot"
	return doc
}

// errorText escapes err because its message can echo what the coach typed.
func errorText(prefix string, err error) string {
	return prefix + ": " + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, err.Error())
}
