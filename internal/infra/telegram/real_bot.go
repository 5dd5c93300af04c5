package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-onboarding-bot/internal/application"
	"telegram-onboarding-bot/internal/config"
	"telegram-onboarding-bot/internal/directory"
	"telegram-onboarding-bot/internal/domain/model"
	"telegram-onboarding-bot/internal/domain/ports/adapter"
	"telegram-onboarding-bot/internal/infra/logging"
)

var (
	_ adapter.TelegramBotAdapter = (*Messenger)(nil)
	_ adapter.TelegramBotAdapter = (*RealBotAdapter)(nil)
)

// Messenger is the outbound half of the bot: plain sends over an
// authenticated client, with no knowledge of the conversation flow. It backs
// both the polling adapter and the admin notifier.
type Messenger struct {
	bot *tgbotapi.BotAPI
}

func NewMessenger(bot *tgbotapi.BotAPI) *Messenger {
	return &Messenger{bot: bot}
}

func (m *Messenger) SendMessage(ctx context.Context, tgID int64, text string) error {
	msg := tgbotapi.NewMessage(tgID, text)
	_, err := m.bot.Send(msg)
	return err
}

func (m *Messenger) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	msg := tgbotapi.NewMessage(tgID, text)
	msg.ReplyMarkup = buildMarkup(rows)
	_, err := m.bot.Send(msg)
	return err
}

func (m *Messenger) SendDocument(ctx context.Context, tgID int64, filename string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(tgID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	_, err := m.bot.Send(doc)
	return err
}

// RealBotAdapter implements the chat surface using tgbotapi with concurrent
// polling. It owns only UI concerns: keyboards, prompts and the transient
// multi-select toggle state; every stage transition goes through the facade.
type RealBotAdapter struct {
	*Messenger
	bot         *tgbotapi.BotAPI
	cfg         *config.BotConfig
	facade      *application.BotFacade
	adminIDsMap map[int64]struct{}
	log         *zerolog.Logger

	// picks holds the toggled-but-not-submitted values of the keyboard the
	// user is currently on. Purely presentation state.
	picksMu sync.Mutex
	picks   map[int64]map[string]struct{}

	// updateWorkers is how many goroutines will concurrently process updates.
	updateWorkers int
	cancelPolling context.CancelFunc
}

// NewRealBotAdapter wraps an already authenticated bot client. The client is
// shared with the role granter, so the caller owns its construction.
func NewRealBotAdapter(bot *tgbotapi.BotAPI, cfg *config.BotConfig, facade *application.BotFacade, logger *zerolog.Logger) (*RealBotAdapter, error) {
	if bot == nil {
		return nil, errors.New("bot client is nil")
	}
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}

	adminMap := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}

	return &RealBotAdapter{
		Messenger:     NewMessenger(bot),
		bot:           bot,
		cfg:           cfg,
		facade:        facade,
		adminIDsMap:   adminMap,
		log:           logger,
		picks:         make(map[int64]map[string]struct{}),
		updateWorkers: workers,
	}, nil
}

// StartPolling begins polling Telegram for updates concurrently.
// It runs until ctx is canceled.
func (r *RealBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					if err := r.handleUpdate(ctx, update); err != nil {
						r.log.Error().Err(err).Int("worker", workerID).Msg("error handling update")
					}
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	r.bot.StopReceivingUpdates()
	wg.Wait()
	return nil
}

// StopPolling stops the polling loop gracefully.
func (r *RealBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func buildMarkup(rows [][]adapter.InlineButton) tgbotapi.InlineKeyboardMarkup {
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		kb = append(kb, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kb...)
}

// handleUpdate processes a single Telegram update.
func (r *RealBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	ctx = logging.WithTraceID(ctx, uuid.NewString())

	if update.CallbackQuery != nil {
		return r.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	tgUser := update.Message.From
	ctx = logging.WithTgID(ctx, tgUser.ID)

	if update.Message.IsCommand() {
		return r.handleCommand(ctx, update.Message)
	}
	return r.handleText(ctx, tgUser.ID, update.Message.Text)
}

func (r *RealBotAdapter) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	tgID := msg.From.ID
	switch msg.Command() {
	case "start":
		return r.SendMessage(ctx, tgID,
			"Welcome! Run /onboarding followed by your country to introduce yourself, e.g. /onboarding Canada")
	case "help":
		return r.SendMessage(ctx, tgID,
			"Available commands:\n/onboarding <country> - start the onboarding flow\n/cancel - abandon the current flow\n/export - full data export (admins only)")
	case "onboarding":
		return r.startOnboarding(ctx, msg)
	case "cancel":
		reply, err := r.facade.HandleCancel(ctx, tgID)
		if err != nil {
			r.log.Warn().Err(err).Int64("tg_id", tgID).Msg("cancel failed")
		}
		return r.SendMessage(ctx, tgID, reply.Text)
	case "export":
		if !r.isAdmin(tgID) {
			return r.SendMessage(ctx, tgID, "You are not authorized to use this command.")
		}
		summary, csvData, err := r.facade.HandleExport(ctx)
		if err != nil {
			r.log.Error().Err(err).Msg("export failed")
			return r.SendMessage(ctx, tgID, "Failed to export records. Please try again later.")
		}
		if err := r.SendMessage(ctx, tgID, summary); err != nil {
			return err
		}
		name := fmt.Sprintf("onboarding-%s.csv", time.Now().UTC().Format("20060102-150405"))
		return r.SendDocument(ctx, tgID, name, csvData, "Full onboarding export")
	default:
		return r.SendMessage(ctx, tgID, "Unknown command. Send /help for the list of commands.")
	}
}

// startOnboarding resolves the country argument. An exact match starts the
// flow immediately; otherwise the matching subset is offered as buttons.
func (r *RealBotAdapter) startOnboarding(ctx context.Context, msg *tgbotapi.Message) error {
	tgID := msg.From.ID
	query := strings.TrimSpace(msg.CommandArguments())

	if directory.IsCountry(query) {
		return r.beginFlow(ctx, tgID, msg.From.UserName, query)
	}

	matches := directory.SearchCountries(query)
	if len(matches) == 0 {
		return r.SendMessage(ctx, tgID, "No country matches that. Try /onboarding followed by part of your country's name.")
	}
	rows := make([][]adapter.InlineButton, 0, len(matches))
	for _, c := range matches {
		rows = append(rows, []adapter.InlineButton{{Text: c, Data: "country:" + c}})
	}
	return r.SendButtons(ctx, tgID, "Pick your country:", rows)
}

func (r *RealBotAdapter) beginFlow(ctx context.Context, tgID int64, username, country string) error {
	reply, err := r.facade.HandleStart(ctx, tgID, username, country)
	if err != nil {
		r.log.Warn().Err(err).Int64("tg_id", tgID).Msg("start rejected")
	}
	r.resetPicks(tgID)
	return r.sendStage(ctx, tgID, reply)
}

func (r *RealBotAdapter) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil {
		return nil
	}
	tgID := cb.From.ID
	ctx = logging.WithTgID(ctx, tgID)

	// Always answer the callback so the client stops its spinner.
	defer func() {
		if _, err := r.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			r.log.Debug().Err(err).Msg("answer callback failed")
		}
	}()

	data := cb.Data
	switch {
	case strings.HasPrefix(data, "country:"):
		return r.beginFlow(ctx, tgID, cb.From.UserName, strings.TrimPrefix(data, "country:"))

	case data == "repeat:yes" || data == "repeat:no":
		reply, err := r.facade.HandleRepeatChoice(ctx, tgID, data == "repeat:yes")
		if err != nil {
			r.log.Warn().Err(err).Int64("tg_id", tgID).Msg("repeat choice failed")
		}
		return r.sendStage(ctx, tgID, reply)

	case strings.HasPrefix(data, "toggle:"):
		return r.handleToggle(ctx, cb)

	case data == "done:int":
		reply, err := r.facade.HandleInterests(ctx, tgID, r.takePicks(tgID))
		if err != nil {
			r.log.Warn().Err(err).Int64("tg_id", tgID).Msg("interests rejected")
		}
		return r.sendStage(ctx, tgID, reply)

	case data == "done:plat":
		reply, err := r.facade.HandlePlatforms(ctx, tgID, r.takePicks(tgID))
		if err != nil {
			r.log.Warn().Err(err).Int64("tg_id", tgID).Msg("platforms rejected")
		}
		return r.sendStage(ctx, tgID, reply)

	case data == "applink:skip":
		reply, err := r.facade.HandleAppLink(ctx, tgID, "", true)
		if err != nil {
			r.log.Warn().Err(err).Int64("tg_id", tgID).Msg("skip app link failed")
		}
		return r.sendStage(ctx, tgID, reply)

	case data == "applink:share":
		return r.forceReply(ctx, tgID, "Reply with a link to your app on the App Store or Google Play (https://...)")

	case data == "name:skip":
		reply, err := r.facade.HandleName(ctx, tgID, "", true)
		if err != nil {
			r.log.Warn().Err(err).Int64("tg_id", tgID).Msg("skip name failed")
		}
		return r.sendStage(ctx, tgID, reply)

	case data == "name:share":
		return r.forceReply(ctx, tgID, "Reply with your first and last name")

	default:
		r.log.Debug().Str("data", data).Msg("unknown callback")
		return nil
	}
}

// handleText routes free text by the user's current stage: a link while the
// flow awaits one, a name while the flow awaits one, otherwise a hint.
func (r *RealBotAdapter) handleText(ctx context.Context, tgID int64, text string) error {
	stage, err := r.facade.Stage(ctx, tgID)
	if err != nil {
		return r.SendMessage(ctx, tgID, "Sorry, I didn't understand that. Send /help for commands.")
	}

	switch stage {
	case model.StageAwaitingAppLink:
		reply, err := r.facade.HandleAppLink(ctx, tgID, strings.TrimSpace(text), false)
		if err != nil {
			r.log.Warn().Err(err).Int64("tg_id", tgID).Msg("app link rejected")
		}
		return r.sendStage(ctx, tgID, reply)
	case model.StageAwaitingName:
		reply, err := r.facade.HandleName(ctx, tgID, strings.TrimSpace(text), false)
		if err != nil {
			r.log.Warn().Err(err).Int64("tg_id", tgID).Msg("name rejected")
		}
		return r.sendStage(ctx, tgID, reply)
	default:
		return r.SendMessage(ctx, tgID, "Use the buttons of the latest message to continue, or /cancel to start over.")
	}
}

// handleToggle flips one multi-select option and redraws the keyboard in
// place.
func (r *RealBotAdapter) handleToggle(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	tgID := cb.From.ID
	parts := strings.SplitN(cb.Data, ":", 3)
	if len(parts) != 3 {
		return nil
	}
	kind, idxStr := parts[1], parts[2]
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return nil
	}

	var opts []directory.Option
	switch kind {
	case "int":
		opts = directory.InterestOptions
	case "plat":
		opts = directory.PlatformOptions
	default:
		return nil
	}
	if idx < 0 || idx >= len(opts) {
		return nil
	}

	selected := r.togglePick(tgID, opts[idx].Value)
	markup := r.selectKeyboard(kind, opts, selected)

	if cb.Message == nil {
		return nil
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(cb.Message.Chat.ID, cb.Message.MessageID, markup)
	_, err = r.bot.Request(edit)
	return err
}

// sendStage sends the reply text plus the controls belonging to the next
// stage.
func (r *RealBotAdapter) sendStage(ctx context.Context, tgID int64, reply *application.FlowReply) error {
	if reply == nil {
		return nil
	}
	switch reply.Stage {
	case model.StageAwaitingRepeatChoice:
		return r.SendButtons(ctx, tgID, reply.Text, [][]adapter.InlineButton{{
			{Text: "Continue Anyway", Data: "repeat:yes"},
			{Text: "Keep My Answers", Data: "repeat:no"},
		}})
	case model.StageAwaitingInterests:
		r.resetPicks(tgID)
		return r.sendSelect(ctx, tgID, reply.Text, "int", directory.InterestOptions)
	case model.StageAwaitingPlatforms:
		r.resetPicks(tgID)
		return r.sendSelect(ctx, tgID, reply.Text, "plat", directory.PlatformOptions)
	case model.StageAwaitingAppLink:
		return r.SendButtons(ctx, tgID, reply.Text, [][]adapter.InlineButton{{
			{Text: "Share App Link", Data: "applink:share"},
			{Text: "Skip", Data: "applink:skip"},
		}})
	case model.StageAwaitingName:
		return r.SendButtons(ctx, tgID, reply.Text, [][]adapter.InlineButton{{
			{Text: "Share Full Name", Data: "name:share"},
			{Text: "Skip", Data: "name:skip"},
		}})
	default:
		return r.SendMessage(ctx, tgID, reply.Text)
	}
}

func (r *RealBotAdapter) sendSelect(ctx context.Context, tgID int64, text, kind string, opts []directory.Option) error {
	msg := tgbotapi.NewMessage(tgID, text)
	msg.ReplyMarkup = r.selectKeyboard(kind, opts, nil)
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealBotAdapter) selectKeyboard(kind string, opts []directory.Option, selected map[string]struct{}) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(opts)+1)
	for i, o := range opts {
		label := o.Label
		if _, ok := selected[o.Value]; ok {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("toggle:%s:%d", kind, i)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Done", "done:"+kind),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (r *RealBotAdapter) forceReply(ctx context.Context, tgID int64, prompt string) error {
	msg := tgbotapi.NewMessage(tgID, prompt)
	msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealBotAdapter) isAdmin(tgID int64) bool {
	_, ok := r.adminIDsMap[tgID]
	return ok
}

// ---- toggle state ----

func (r *RealBotAdapter) resetPicks(tgID int64) {
	r.picksMu.Lock()
	delete(r.picks, tgID)
	r.picksMu.Unlock()
}

// togglePick flips value for tgID and returns a copy of the current set.
func (r *RealBotAdapter) togglePick(tgID int64, value string) map[string]struct{} {
	r.picksMu.Lock()
	defer r.picksMu.Unlock()
	set, ok := r.picks[tgID]
	if !ok {
		set = make(map[string]struct{})
		r.picks[tgID] = set
	}
	if _, ok := set[value]; ok {
		delete(set, value)
	} else {
		set[value] = struct{}{}
	}
	cp := make(map[string]struct{}, len(set))
	for v := range set {
		cp[v] = struct{}{}
	}
	return cp
}

// takePicks returns the toggled values in option-list order and clears them.
func (r *RealBotAdapter) takePicks(tgID int64) []string {
	r.picksMu.Lock()
	set := r.picks[tgID]
	delete(r.picks, tgID)
	r.picksMu.Unlock()

	var out []string
	for _, o := range append(append([]directory.Option{}, directory.InterestOptions...), directory.PlatformOptions...) {
		if _, ok := set[o.Value]; ok {
			out = append(out, o.Value)
		}
	}
	return out
}
