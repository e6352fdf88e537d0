package i18n

import "strings"

var texts = map[string]map[string]string{
	"ru": {
		"start.choose_language": "Выберите язык / Choose language:",
		"menu.title":            "Главное меню",
		"menu.btn.tariffs":      "📋 Тарифы",
		"menu.btn.lang":         "🌐 Язык",
		"menu.btn.help":         "ℹ️ Помощь",
		"help.text":             "Доступные команды:\n/start — начать\n/menu — меню\n/lang — сменить язык\n/ping — проверка связи",
		"tariffs.title":         "Выберите тариф:",
		"tariffs.prompt":        "👇 Выберите тариф ниже",
		"plan.line":             "{title} — {price} {currency} / {days} дней",
		"plan.chosen":           "Вы выбрали: {plan}",
		"pong":                  "pong 🏓",
		"pay.instructions":      "💸 Отправьте оплату на один из адресов ниже:",
		"pay.send_proof_button": "Отправить хэш / скрин",
		"proof.prompt":          "Отправьте хэш транзакции или приложите скриншот/файл.",
		"proof.received":        "Заявка принята, ожидайте подтверждения.",
		"proof.empty":           "Не удалось распознать подтверждение. Отправьте хэш (не короче 5 символов), фото или файл.",
		"proof.retry":           "Не удалось сохранить заявку, попробуйте ещё раз.",
		"admin.new_payment":     "💰 Новый запрос на оплату!\n👤 Username: {uname}\n💳 Тариф: {tline}\n{hash_line}",
		"admin.hash_line":       "🔗 Хэш: <code>{hash}</code>",
		"admin.paid_btn":        "Оплачено ✅",
		"admin.rej_btn":         "Отклонить ❌",
		"user.paid_confirmed":   "✅ Оплата подтверждена! {invite_text}",
		"user.rejected":         "❌ Оплата отклонена. Если это ошибка — свяжитесь с поддержкой.",
		"user.invite_text":      "Ваша ссылка-приглашение: {link}",
		"user.invite_pending":   "Ссылка-приглашение будет отправлена отдельно.",
		"pay.wallet_line":       "{label}: <code>{address}</code>",
		"lang.saved":            "Язык сохранён",
		"cb.ok":                 "Готово",
		"cb.already":            "Заявка уже обработана",
		"cb.forbidden":          "Нет прав",
		"cb.not_found":          "Заявка не найдена",
		"cb.failed":             "Ошибка, попробуйте позже",
		"cb.warning":            "Решение сохранено, но не всё удалось доставить. Подробности в чате.",
		"admin.warn_credential": "⚠️ Заявка #{id}: не удалось создать приглашение: {error}",
		"admin.warn_submitter":  "⚠️ Заявка #{id}: не удалось отправить пользователю: {error}",
		"admin.warn_delivery":   "⚠️ Заявка #{id}: сбой доставки ({target}): {error}",
		"proof.plan_gone":       "Этот тариф больше недоступен. Выберите тариф заново в меню.",
	},
	"en": {
		"start.choose_language": "Choose your language / Выберите язык:",
		"menu.title":            "Main menu",
		"menu.btn.tariffs":      "📋 Plans",
		"menu.btn.lang":         "🌐 Language",
		"menu.btn.help":         "ℹ️ Help",
		"help.text":             "Available commands:\n/start — start\n/menu — menu\n/lang — change language\n/ping — connectivity check",
		"tariffs.title":         "Choose a plan:",
		"tariffs.prompt":        "👇 Pick a plan below",
		"plan.line":             "{title} — {price} {currency} / {days} days",
		"plan.chosen":           "You chose: {plan}",
		"pong":                  "pong 🏓",
		"pay.instructions":      "💸 Send payment to one of the addresses below:",
		"pay.send_proof_button": "Send TX hash / screenshot",
		"proof.prompt":          "Send the transaction hash or attach a screenshot/file.",
		"proof.received":        "Submitted, please wait for confirmation.",
		"proof.empty":           "Could not find a proof. Send a hash (at least 5 characters), a photo or a file.",
		"proof.retry":           "Could not save your submission, please try again.",
		"admin.new_payment":     "💰 New payment request!\n👤 Username: {uname}\n💳 Plan: {tline}\n{hash_line}",
		"admin.hash_line":       "🔗 Hash: <code>{hash}</code>",
		"admin.paid_btn":        "Paid ✅",
		"admin.rej_btn":         "Reject ❌",
		"user.paid_confirmed":   "✅ Payment confirmed! {invite_text}",
		"user.rejected":         "❌ Payment was rejected. If this is a mistake, contact support.",
		"user.invite_text":      "Your invite link: {link}",
		"user.invite_pending":   "Your invite link will be sent separately.",
		"pay.wallet_line":       "{label}: <code>{address}</code>",
		"lang.saved":            "Language saved",
		"cb.ok":                 "OK",
		"cb.already":            "Already handled",
		"cb.forbidden":          "Not allowed",
		"cb.not_found":          "Request not found",
		"cb.failed":             "Something went wrong, try again later",
		"cb.warning":            "Decision saved, but some deliveries failed. See the chat for details.",
		"admin.warn_credential": "⚠️ Payment #{id}: cannot create invite: {error}",
		"admin.warn_submitter":  "⚠️ Payment #{id}: could not notify the user: {error}",
		"admin.warn_delivery":   "⚠️ Payment #{id}: {target} delivery failed: {error}",
		"proof.plan_gone":       "This plan is no longer available. Pick a plan again from the menu.",
	},
}

// Tr looks key up for locale (falling back to English, then to the key itself)
// and substitutes {name} placeholders from alternating name/value pairs.
func Tr(locale, key string, pairs ...string) string {
	table, ok := texts[locale]
	if !ok {
		table = texts["en"]
	}
	text, ok := table[key]
	if !ok {
		text = key
	}
	if len(pairs) < 2 {
		return text
	}

	oldnew := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		oldnew = append(oldnew, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(oldnew...).Replace(text)
}

// All returns the text for key in every locale, used to match reply-keyboard
// buttons regardless of the language they were rendered in.
func All(key string) []string {
	out := make([]string, 0, len(texts))
	for _, table := range texts {
		if text, ok := table[key]; ok {
			out = append(out, text)
		}
	}
	return out
}
