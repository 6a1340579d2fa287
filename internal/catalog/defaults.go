package catalog

import (
	"fmt"

	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// builder assigns stable sequential IDs so content updates diff cleanly.
type builder struct {
	templates []types.ChallengeTemplate
	counters  map[string]int
}

func (b *builder) add(t types.ChallengeTemplate) {
	key := fmt.Sprintf("%s-%d", t.Theme, t.Level)
	b.counters[key]++
	t.ID = fmt.Sprintf("%s-%02d", key, b.counters[key])
	if t.Gender == "" {
		t.Gender = types.GenderAny
	}
	if t.Media == "" {
		t.Media = types.MediaText
	}
	b.templates = append(b.templates, t)
}

func (b *builder) text(theme string, level int, prompt string) {
	b.add(types.ChallengeTemplate{Theme: theme, Level: level, Prompt: prompt})
}

func (b *builder) media(theme string, level int, media types.MediaType, prompt string) {
	b.add(types.ChallengeTemplate{Theme: theme, Level: level, Media: media, Prompt: prompt})
}

func (b *builder) toy(theme string, level int, toy, prompt string) {
	b.add(types.ChallengeTemplate{Theme: theme, Level: level, HasToy: true, Toy: toy, Prompt: prompt})
}

// defaultTemplates is the built-in content pool. Classic carries the
// widest spread because it is the backfill theme: every level must have
// classic content for the selection fallback to work.
func defaultTemplates() []types.ChallengeTemplate {
	b := &builder{counters: make(map[string]int)}

	// classic, level 1
	b.text(types.ThemeClassic, 1, "Give your partner a sincere compliment about something they did this week.")
	b.text(types.ThemeClassic, 1, "Tell your partner about the moment you knew you liked them.")
	b.text(types.ThemeClassic, 1, "Hold eye contact with your partner for a full minute without speaking.")
	b.text(types.ThemeClassic, 1, "Describe your partner in exactly three words.")
	b.text(types.ThemeClassic, 1, "Share your favorite memory of the two of you together.")
	b.text(types.ThemeClassic, 1, "Give your partner a hug that lasts at least twenty seconds.")
	b.media(types.ThemeClassic, 1, types.MediaPhoto, "Take a selfie together making your silliest faces.")
	b.media(types.ThemeClassic, 1, types.MediaAudio, "Record yourself saying what you appreciate most about your partner.")

	// classic, level 2
	b.text(types.ThemeClassic, 2, "Whisper something in your partner's ear you have never told them.")
	b.text(types.ThemeClassic, 2, "Give your partner a slow shoulder massage for two minutes.")
	b.text(types.ThemeClassic, 2, "Describe your ideal date night with your partner in detail.")
	b.text(types.ThemeClassic, 2, "Slow dance together to a song your partner picks.")
	b.text(types.ThemeClassic, 2, "Tell your partner one thing they do that always makes your heart race.")
	b.text(types.ThemeClassic, 2, "Feed your partner something sweet without using your hands.")
	b.media(types.ThemeClassic, 2, types.MediaPhoto, "Take a photo of your partner that captures what you love about them.")
	b.media(types.ThemeClassic, 2, types.MediaVideo, "Film a ten-second video telling your partner why tonight matters.")

	// classic, level 3
	b.text(types.ThemeClassic, 3, "Kiss your partner somewhere you have never kissed them before.")
	b.text(types.ThemeClassic, 3, "Describe what you find most attractive about your partner, head to toe.")
	b.text(types.ThemeClassic, 3, "Trade places: act out how your partner behaves when they flirt with you.")
	b.text(types.ThemeClassic, 3, "Let your partner choose one item of clothing for you to remove.")
	b.text(types.ThemeClassic, 3, "Give your partner a slow kiss on the neck.")
	b.text(types.ThemeClassic, 3, "Tell your partner about a dream you had about them.")
	b.media(types.ThemeClassic, 3, types.MediaPhoto, "Take a photo of yourselves recreating your first kiss.")
	b.media(types.ThemeClassic, 3, types.MediaAudio, "Record a voice note describing your favorite evening together, sparing no detail.")

	// classic, level 4
	b.text(types.ThemeClassic, 4, "Tell your partner a fantasy you have never shared with anyone.")
	b.text(types.ThemeClassic, 4, "Let your partner blindfold you and surprise you with three different touches.")
	b.text(types.ThemeClassic, 4, "Give your partner a massage anywhere they ask, for as long as they ask.")
	b.text(types.ThemeClassic, 4, "Describe, in detail, what you want to happen after this game ends.")
	b.text(types.ThemeClassic, 4, "Let your partner write a dare for you on your skin with their finger. Guess it, then do it.")
	b.text(types.ThemeClassic, 4, "Act out the first five minutes of your partner's ideal evening.")

	// romantic
	b.text("romantic", 1, "Read your partner a line of poetry, or make one up on the spot.")
	b.text("romantic", 1, "Tell your partner what song always reminds you of them and why.")
	b.text("romantic", 1, "Plan an imaginary weekend away together, out loud, right now.")
	b.media("romantic", 1, types.MediaPhoto, "Take a photo of your hands intertwined.")
	b.text("romantic", 2, "Light a candle, dim the lights, and tell your partner your favorite thing about your life together.")
	b.text("romantic", 2, "Write a three-line love note and read it aloud.")
	b.text("romantic", 2, "Kiss your partner the way you kissed on your first date.")
	b.media("romantic", 2, types.MediaAudio, "Record yourself singing the chorus of your partner's favorite love song.")
	b.text("romantic", 3, "Describe the exact moment today you found your partner most attractive.")
	b.text("romantic", 3, "Kiss your partner for a full minute without stopping.")
	b.text("romantic", 3, "Tell your partner three places you love to be touched.")
	b.media("romantic", 3, types.MediaVideo, "Film your partner while telling them what makes them beautiful.")
	b.text("romantic", 4, "Undress your partner's shoulders and kiss from one to the other, slowly.")
	b.text("romantic", 4, "Describe your perfect night together from first touch to falling asleep.")
	b.text("romantic", 4, "Let your partner guide your hands wherever they want them for one minute.")

	// playful
	b.text("playful", 1, "Do your best impression of your partner until they laugh.")
	b.text("playful", 1, "Have a thumb war. Loser owes the winner a kiss.")
	b.text("playful", 1, "Speak in an accent of your partner's choosing for the next two rounds.")
	b.media("playful", 1, types.MediaPhoto, "Strike a bodybuilder pose and have your partner photograph it.")
	b.text("playful", 2, "Let your partner pose you like a statue and hold it for thirty seconds.")
	b.text("playful", 2, "Play rock-paper-scissors; the loser grants a small wish.")
	b.text("playful", 2, "Dance for thirty seconds with no music while your partner rates your moves.")
	b.media("playful", 2, types.MediaVideo, "Film a dramatic slow-motion run into your partner's arms.")
	b.text("playful", 3, "Let your partner draw something on you with a washable marker, placement their choice.")
	b.text("playful", 3, "Reenact a famous movie kiss scene chosen by your partner.")
	b.text("playful", 3, "Play truth: answer any one question your partner asks, honestly.")
	b.media("playful", 3, types.MediaAudio, "Record your most seductive reading of a grocery list.")
	b.text("playful", 4, "Let your partner set a two-minute timer and dare you to keep a straight face while they try anything to break it.")
	b.text("playful", 4, "Swap one piece of clothing with your partner for the rest of the game.")

	// toy-tagged entries; excluded entirely unless the player opted in
	b.toy(types.ThemeClassic, 2, "blindfold", "Blindfold your partner and let them guess three objects by touch alone.")
	b.toy(types.ThemeClassic, 2, "dice", "Roll the dice: that many kisses, location of the roller's choosing.")
	b.toy(types.ThemeClassic, 3, "blindfold", "Blindfold yourself and find your partner's lips on the first try.")
	b.toy(types.ThemeClassic, 3, "feather", "Trace a feather along your partner's arm and see how long they stay still.")
	b.toy(types.ThemeClassic, 4, "blindfold", "Blindfold your partner and kiss them somewhere unexpected.")
	b.toy(types.ThemeClassic, 4, "feather", "Use the feather anywhere your partner allows for one full minute.")
	b.toy("romantic", 3, "massage-oil", "Give your partner a two-minute hand massage with warm oil.")
	b.toy("romantic", 4, "massage-oil", "Give your partner a back massage with oil, as slow as you can manage.")
	b.toy("playful", 2, "dice", "Roll the dice twice: first roll picks the dance move, second how many times.")

	return b.templates
}
