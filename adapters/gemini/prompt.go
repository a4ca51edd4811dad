package gemini

// Model selection mirrors the product defaults: the live model carries the
// streaming session, the text model does one-shot translation and the TTS
// model renders typed translations as speech.
const (
	LiveModel      = "gemini-2.0-flash-exp"
	TranslateModel = "gemini-3-pro-preview"
	TTSModel       = "gemini-2.5-flash-preview-tts"
)

// SystemInstruction is the fixed bilingual interpreter persona used for both
// the live session and one-shot translation.
const SystemInstruction = `
You are an expert bilingual interpreter for Chinese (Mandarin) and English.
Your goal is to provide natural, idiomatic, and culturally appropriate translations in real-time.

Rules:
1. If the input is in English, translate it to spoken, natural Chinese.
2. If the input is in Chinese, translate it to spoken, natural English.
3. Do not answer questions or engage in conversation yourself. ONLY TRANSLATE what is said.
4. Adopt the tone of the speaker (professional, casual, excited).
5. For idioms, find the cultural equivalent rather than translating literally.
6. Keep translations concise.
`
