// Package texts holds the bot's canned reply pools and fixed messages.
// All of these are literal strings — selection logic lives in the engine.
package texts

// WaitResponses are sent immediately after a meme request, before fetching.
var WaitResponses = []string{
	"болд болд родной ка бр миныт",
	"зяныыыым каз жберем",
	"ка кут",
	"жди",
	"аааа мема захотелось",
}

// NothingFoundText is the fallback when no fresh candidate could be delivered.
const NothingFoundText = "Ща не нашел мем, попробуй еще раз через пару секунд."

// WhoAmIResponses answer the identity-query trigger.
var WhoAmIResponses = []string{
	"Ты рот закрой",
	"Сен прыщан андай типо ысыып жара жара болп жаткан",
	"Зяныы зянымснго",
	"Похумеспа саган",
	"Енды сен км екенынды мен айтып журин",
	"Викепедиядан караш",
	"Чорт",
	"Мал в пальто",
	"Лох",
	"Менын зурегыыыым сол ууу зянм",
	"Подчиненный алдика",
	"Раб алдика",
	"Подчиненный и раб алдика",
	"Бопаши",
	"хз",
	"ернп турм ответ беруге",
	"Крутой чел но не круче алдика",
	"Сисяпися",
	"Алдиктын бопесы",
	"Закрой свой вонючий рот щенок",
	"Маманнан сураш",
	"Папаннан сураш",
	"Кем бы ты ни был, ты для меня самый лучший человек, алдик тебя любит",
	"Тагы бррет сураш",
	"Любимчик алдика",
	"Геморойснго журген натуре",
	"Мен сены жаксы корем",
	"Жанмснго",
	"Жан журегм менын",
	"Жапырак дуниемснго",
	"Кудооой кудой менын балапаныыымснго",
	"Менын зайченогм",
	"Котигм сол",
	"Люблююю люблю тебя",
}

// NameResponses answer a plain mention of the bot's name.
var NameResponses = []string{
	"Чо каям",
	"Не надо",
	"Аузнды жапшы",
	"Шша мал",
	"Мен мндамн зяным",
	"Тыныш отр",
	"Чего тебе родной",
	"Базар жок",
	"Ннада",
	"Сураныш жок маган",
}

// GreetingResponses answer greeting tokens.
var GreetingResponses = []string{
	"Уалейкум ассалам зяным",
	"Салам каям",
	"Здарова чертила",
	"Опа кандайсндар",
	"Салам дос",
}

// DecisionResponses answer the should-I-do-it trigger.
var DecisionResponses = []string{
	"Делай каям",
	"Не делай мал",
	"Сам реши натуре",
	"Жасай бер зяным",
	"Ннада ондай",
}

// SorrowResponses answer the sorrow exact-phrase trigger.
var SorrowResponses = []string{
	"Жылама зяным алдик рядом",
	"Кайгырма каям все норм болад",
	"Бопем менын жылама",
	"Держись родной",
}

// StretchedVowelResponses answer the stretched-vowel trigger.
var StretchedVowelResponses = []string{
	"Аааауууу дейснба каям",
	"Шуламаш натуре",
	"Ооой баса",
}

// ModeratorResponses answer the moderator root word.
var ModeratorResponses = []string{
	"Модератор мндамн чо надо",
	"Кто тут модер сказал, мен мндамн",
	"Модерлар жок тек алдик бар",
}

// SpecialUserResponses answer the configured user replying to the
// configured target.
var SpecialUserResponses = []string{
	"Опять ты до него докопался",
	"Тише тише каям",
	"Жеме оны зяным",
	"Сен оған тиме натуре",
}

// AnonDisabledText is sent when an anonymous link is requested but the
// feature is off for the group.
const AnonDisabledText = "Анонка осы группада выключен, админнан /anon_on сураш."

// BotJoinText greets a group the bot was just added to.
const BotJoinText = "Опа здарова, алдик пришел. /help деп жазндар не умею не могу корш ушн."

// GroupHelpText is /help inside a group.
const GroupHelpText = "Крч алдик умеет:\n" +
	"- алдик видео / алдик фото деп жазсан мем келед\n" +
	"- анонка ссылка сурасан анон жазасндар\n" +
	"- атымды атасан жауап берем\n\n" +
	"Админ командалар: /bot_on /bot_off /anon_on /anon_off /anon_link /ai_on /ai_off /ai_style /ai_status"

// PrivateStartText is /start in a private chat without a deep link.
const PrivateStartText = "Салам, мен алдик. Группага кос мены сосн корееснго."

// PrivateHelpText is /help in a private chat.
const PrivateHelpText = "Группадан анон ссылка алсан осында жазасн, мен группага жберем."

// AnonPromptText asks the user for the anonymous message body.
const AnonPromptText = "Кане жаз енды не айтайн деп едын, группага анонимно кетед."

// AIVocab is the street vocabulary injected into AI replies.
var AIVocab = []string{
	"натуре",
	"натури",
	"каям",
	"каям жемеш",
	"шша",
	"ищщщаааа",
	"мал",
	"чорт",
	"шша мал",
	"базар жок",
	"дану гульбану",
	"дану насмерть",
	"какие дела",
	"алдик чотам на месте",
	"мен сены жаксы корем",
	"аузнды жапшы",
	"жапшы аузнды",
	"рот закрой",
	"щенок",
}
