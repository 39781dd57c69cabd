package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/study-finder/internal/domain"
)

const telegramMessageLimit = 4096

const helpText = `<b>Доступные команды:</b>

/start - Приветствие
/help - Показать эту справку
/recommend интересы; уровень; язык; бюджет - Подобрать программы

<b>Формат запроса:</b>
• интересы - направление, например computer science
• уровень - bachelor, master или phd
• язык - уровень немецкого или английского, например B2
• бюджет - сколько евро в месяц вы готовы тратить

<b>Пример:</b>
/recommend computer science; master; B2; 1200

Можно прислать то же самое и без команды.`

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	h.bot.logger.Info("received message",
		zap.Int64("user_id", msg.From.ID),
		zap.String("username", msg.From.UserName),
		zap.Bool("is_command", msg.IsCommand()),
	)

	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return
	}

	if LooksLikeRecommendArgs(msg.Text) {
		h.handleRecommend(ctx, msg, msg.Text)
		return
	}

	h.bot.Send(msg.Chat.ID, "Не понял запрос. Используйте /help для справки.")
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.bot.Send(msg.Chat.ID, "Привет! Я подбираю учебные программы в Германии под ваш бюджет.\n\nИспользуйте /help для просмотра доступных команд.")
	case "help":
		h.bot.Send(msg.Chat.ID, helpText)
	case "recommend":
		h.handleRecommend(ctx, msg, msg.CommandArguments())
	default:
		h.bot.Send(msg.Chat.ID, "Неизвестная команда. Используйте /help для справки.")
	}
}

func (h *Handler) handleRecommend(ctx context.Context, msg *tgbotapi.Message, args string) {
	if !h.bot.allow(msg.From.ID) {
		h.bot.logger.Warn("rate limit exceeded",
			zap.Int64("user_id", msg.From.ID),
			zap.Time("reset_at", h.bot.rateLimiter.ResetTime(userKey(msg.From.ID))),
		)
		h.bot.RecordRateLimitHit()
		h.bot.Send(msg.Chat.ID, "Слишком много запросов. Пожалуйста, подождите минуту.")
		return
	}

	prefs, err := ParseRecommendArgs(args)
	if err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.SendTyping(msg.Chat.ID)

	h.bot.logger.Info("processing recommendation",
		zap.Int64("user_id", msg.From.ID),
		zap.String("interests", prefs.Interests),
		zap.String("level", prefs.Level),
		zap.Int("budget", prefs.Budget),
	)

	recs, err := h.bot.recommender.Recommend(ctx, prefs)
	if err != nil {
		h.bot.logger.Error("recommendation failed",
			zap.Error(err),
			zap.Int64("user_id", msg.From.ID),
		)
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	for _, m := range SplitMessage(FormatRecommendations(recs, prefs.Budget), telegramMessageLimit) {
		if err := h.bot.Send(msg.Chat.ID, m); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}
}

var fieldNames = map[string]string{
	"interests":      "интересы",
	"level":          "уровень",
	"language_level": "уровень языка",
	"budget":         "бюджет",
}

func mapErrorToMessage(err error) string {
	var fe *domain.FieldError
	switch {
	case errors.Is(err, ErrCommandFormat):
		return "Нужно четыре значения через «;».\nПример: /recommend computer science; master; B2; 1200"
	case errors.Is(err, domain.ErrInvalidField) && errors.As(err, &fe) && fe.Field == "budget":
		return "Бюджет должен быть целым числом евро в месяц."
	case errors.Is(err, domain.ErrMissingField) && errors.As(err, &fe):
		return "Не указано поле: " + fieldNames[fe.Field] + "."
	default:
		return "Произошла ошибка. Попробуйте позже."
	}
}
